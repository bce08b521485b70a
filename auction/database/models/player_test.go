package models

import "testing"

func TestValidPlayerType(t *testing.T) {
	for _, valid := range []PlayerType{PlayerTypeBatsman, PlayerTypeBowler, PlayerTypeAllRounder, PlayerTypeWicketKeeper} {
		if !ValidPlayerType(valid) {
			t.Errorf("ValidPlayerType(%q) = false, want true", valid)
		}
	}
	for _, invalid := range []PlayerType{"", "Coach", "batsman"} {
		if ValidPlayerType(invalid) {
			t.Errorf("ValidPlayerType(%q) = true, want false", invalid)
		}
	}
}

func TestPlayer_Sold(t *testing.T) {
	p := &Player{Name: "A", BasePrice: 5000}
	if p.Sold() {
		t.Errorf("new player reports sold")
	}

	teamID, price := int64(1), int64(5000)
	p.SoldToTeamID = &teamID
	p.SoldPrice = &price
	if !p.Sold() {
		t.Errorf("assigned player reports unsold")
	}
}
