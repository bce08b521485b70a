package mock

import (
	context "context"
	reflect "reflect"

	models "github.com/bhavindev/cricket-auction/auction/database/models"
	gomock "go.uber.org/mock/gomock"
)

// MockPlayerRepository is a mock of PlayerRepository interface.
type MockPlayerRepository struct {
	ctrl     *gomock.Controller
	recorder *MockPlayerRepositoryMockRecorder
	isgomock struct{}
}

// MockPlayerRepositoryMockRecorder is the mock recorder for MockPlayerRepository.
type MockPlayerRepositoryMockRecorder struct {
	mock *MockPlayerRepository
}

// NewMockPlayerRepository creates a new mock instance.
func NewMockPlayerRepository(ctrl *gomock.Controller) *MockPlayerRepository {
	mock := &MockPlayerRepository{ctrl: ctrl}
	mock.recorder = &MockPlayerRepositoryMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockPlayerRepository) EXPECT() *MockPlayerRepositoryMockRecorder {
	return m.recorder
}

// Counts mocks base method.
func (m *MockPlayerRepository) Counts(ctx context.Context) (int64, int64, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Counts", ctx)
	ret0, _ := ret[0].(int64)
	ret1, _ := ret[1].(int64)
	ret2, _ := ret[2].(error)
	return ret0, ret1, ret2
}

// Counts indicates an expected call of Counts.
func (mr *MockPlayerRepositoryMockRecorder) Counts(ctx any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Counts", reflect.TypeOf((*MockPlayerRepository)(nil).Counts), ctx)
}

// Create mocks base method.
func (m *MockPlayerRepository) Create(ctx context.Context, player *models.Player) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Create", ctx, player)
	ret0, _ := ret[0].(error)
	return ret0
}

// Create indicates an expected call of Create.
func (mr *MockPlayerRepositoryMockRecorder) Create(ctx, player any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Create", reflect.TypeOf((*MockPlayerRepository)(nil).Create), ctx, player)
}

// GetAll mocks base method.
func (m *MockPlayerRepository) GetAll(ctx context.Context) ([]*models.Player, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetAll", ctx)
	ret0, _ := ret[0].([]*models.Player)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetAll indicates an expected call of GetAll.
func (mr *MockPlayerRepositoryMockRecorder) GetAll(ctx any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetAll", reflect.TypeOf((*MockPlayerRepository)(nil).GetAll), ctx)
}

// GetByID mocks base method.
func (m *MockPlayerRepository) GetByID(ctx context.Context, id int64) (*models.Player, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetByID", ctx, id)
	ret0, _ := ret[0].(*models.Player)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetByID indicates an expected call of GetByID.
func (mr *MockPlayerRepositoryMockRecorder) GetByID(ctx, id any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetByID", reflect.TypeOf((*MockPlayerRepository)(nil).GetByID), ctx, id)
}

// GetByTeam mocks base method.
func (m *MockPlayerRepository) GetByTeam(ctx context.Context, teamID int64) ([]*models.Player, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetByTeam", ctx, teamID)
	ret0, _ := ret[0].([]*models.Player)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetByTeam indicates an expected call of GetByTeam.
func (mr *MockPlayerRepositoryMockRecorder) GetByTeam(ctx, teamID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetByTeam", reflect.TypeOf((*MockPlayerRepository)(nil).GetByTeam), ctx, teamID)
}

// GetUnsold mocks base method.
func (m *MockPlayerRepository) GetUnsold(ctx context.Context) ([]*models.Player, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetUnsold", ctx)
	ret0, _ := ret[0].([]*models.Player)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetUnsold indicates an expected call of GetUnsold.
func (mr *MockPlayerRepositoryMockRecorder) GetUnsold(ctx any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetUnsold", reflect.TypeOf((*MockPlayerRepository)(nil).GetUnsold), ctx)
}

// GetUnsoldRandom mocks base method.
func (m *MockPlayerRepository) GetUnsoldRandom(ctx context.Context) (*models.Player, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetUnsoldRandom", ctx)
	ret0, _ := ret[0].(*models.Player)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetUnsoldRandom indicates an expected call of GetUnsoldRandom.
func (mr *MockPlayerRepositoryMockRecorder) GetUnsoldRandom(ctx any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetUnsoldRandom", reflect.TypeOf((*MockPlayerRepository)(nil).GetUnsoldRandom), ctx)
}

// SumSoldPrice mocks base method.
func (m *MockPlayerRepository) SumSoldPrice(ctx context.Context, teamID int64) (int64, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "SumSoldPrice", ctx, teamID)
	ret0, _ := ret[0].(int64)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// SumSoldPrice indicates an expected call of SumSoldPrice.
func (mr *MockPlayerRepositoryMockRecorder) SumSoldPrice(ctx, teamID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SumSoldPrice", reflect.TypeOf((*MockPlayerRepository)(nil).SumSoldPrice), ctx, teamID)
}

// MockTeamRepository is a mock of TeamRepository interface.
type MockTeamRepository struct {
	ctrl     *gomock.Controller
	recorder *MockTeamRepositoryMockRecorder
	isgomock struct{}
}

// MockTeamRepositoryMockRecorder is the mock recorder for MockTeamRepository.
type MockTeamRepositoryMockRecorder struct {
	mock *MockTeamRepository
}

// NewMockTeamRepository creates a new mock instance.
func NewMockTeamRepository(ctrl *gomock.Controller) *MockTeamRepository {
	mock := &MockTeamRepository{ctrl: ctrl}
	mock.recorder = &MockTeamRepositoryMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockTeamRepository) EXPECT() *MockTeamRepositoryMockRecorder {
	return m.recorder
}

// Create mocks base method.
func (m *MockTeamRepository) Create(ctx context.Context, team *models.Team) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Create", ctx, team)
	ret0, _ := ret[0].(error)
	return ret0
}

// Create indicates an expected call of Create.
func (mr *MockTeamRepositoryMockRecorder) Create(ctx, team any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Create", reflect.TypeOf((*MockTeamRepository)(nil).Create), ctx, team)
}

// GetAll mocks base method.
func (m *MockTeamRepository) GetAll(ctx context.Context) ([]*models.Team, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetAll", ctx)
	ret0, _ := ret[0].([]*models.Team)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetAll indicates an expected call of GetAll.
func (mr *MockTeamRepositoryMockRecorder) GetAll(ctx any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetAll", reflect.TypeOf((*MockTeamRepository)(nil).GetAll), ctx)
}

// GetByID mocks base method.
func (m *MockTeamRepository) GetByID(ctx context.Context, id int64) (*models.Team, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetByID", ctx, id)
	ret0, _ := ret[0].(*models.Team)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetByID indicates an expected call of GetByID.
func (mr *MockTeamRepositoryMockRecorder) GetByID(ctx, id any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetByID", reflect.TypeOf((*MockTeamRepository)(nil).GetByID), ctx, id)
}

// GetByName mocks base method.
func (m *MockTeamRepository) GetByName(ctx context.Context, name string) (*models.Team, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetByName", ctx, name)
	ret0, _ := ret[0].(*models.Team)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetByName indicates an expected call of GetByName.
func (mr *MockTeamRepositoryMockRecorder) GetByName(ctx, name any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetByName", reflect.TypeOf((*MockTeamRepository)(nil).GetByName), ctx, name)
}

// MockTransactionRepository is a mock of TransactionRepository interface.
type MockTransactionRepository struct {
	ctrl     *gomock.Controller
	recorder *MockTransactionRepositoryMockRecorder
	isgomock struct{}
}

// MockTransactionRepositoryMockRecorder is the mock recorder for MockTransactionRepository.
type MockTransactionRepositoryMockRecorder struct {
	mock *MockTransactionRepository
}

// NewMockTransactionRepository creates a new mock instance.
func NewMockTransactionRepository(ctrl *gomock.Controller) *MockTransactionRepository {
	mock := &MockTransactionRepository{ctrl: ctrl}
	mock.recorder = &MockTransactionRepositoryMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockTransactionRepository) EXPECT() *MockTransactionRepositoryMockRecorder {
	return m.recorder
}

// GetByTeam mocks base method.
func (m *MockTransactionRepository) GetByTeam(ctx context.Context, teamID int64) ([]*models.Transaction, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetByTeam", ctx, teamID)
	ret0, _ := ret[0].([]*models.Transaction)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetByTeam indicates an expected call of GetByTeam.
func (mr *MockTransactionRepositoryMockRecorder) GetByTeam(ctx, teamID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetByTeam", reflect.TypeOf((*MockTransactionRepository)(nil).GetByTeam), ctx, teamID)
}

// GetRecent mocks base method.
func (m *MockTransactionRepository) GetRecent(ctx context.Context, limit int) ([]*models.Transaction, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetRecent", ctx, limit)
	ret0, _ := ret[0].([]*models.Transaction)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetRecent indicates an expected call of GetRecent.
func (mr *MockTransactionRepositoryMockRecorder) GetRecent(ctx, limit any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetRecent", reflect.TypeOf((*MockTransactionRepository)(nil).GetRecent), ctx, limit)
}

// RecordSale mocks base method.
func (m *MockTransactionRepository) RecordSale(ctx context.Context, playerID, teamID, amount int64) (*models.Transaction, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "RecordSale", ctx, playerID, teamID, amount)
	ret0, _ := ret[0].(*models.Transaction)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// RecordSale indicates an expected call of RecordSale.
func (mr *MockTransactionRepositoryMockRecorder) RecordSale(ctx, playerID, teamID, amount any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "RecordSale", reflect.TypeOf((*MockTransactionRepository)(nil).RecordSale), ctx, playerID, teamID, amount)
}

// SumByTeam mocks base method.
func (m *MockTransactionRepository) SumByTeam(ctx context.Context, teamID int64) (int64, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "SumByTeam", ctx, teamID)
	ret0, _ := ret[0].(int64)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// SumByTeam indicates an expected call of SumByTeam.
func (mr *MockTransactionRepositoryMockRecorder) SumByTeam(ctx, teamID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SumByTeam", reflect.TypeOf((*MockTransactionRepository)(nil).SumByTeam), ctx, teamID)
}
