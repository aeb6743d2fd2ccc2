package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/coinjoin-tools/cjwallet/internal/core/domain"
	"github.com/stretchr/testify/mock"
)

type mockedLedger struct {
	mock.Mock
}

func (m *mockedLedger) GetUnspentCoins(
	ctx context.Context, scheme domain.DerivationScheme, includeUnconfirmed bool,
) ([]domain.Coin, error) {
	args := m.Called(ctx, scheme, includeUnconfirmed)

	var res []domain.Coin
	if a := args.Get(0); a != nil {
		res = a.([]domain.Coin)
	}
	return res, args.Error(1)
}

func (m *mockedLedger) ReserveAddress(
	ctx context.Context, storeId string, scheme domain.DerivationScheme, label string,
) (btcutil.Address, error) {
	args := m.Called(ctx, storeId, scheme, label)

	var res btcutil.Address
	if a := args.Get(0); a != nil {
		res = a.(btcutil.Address)
	}
	return res, args.Error(1)
}

type mockedKeyDeriver struct {
	mock.Mock
}

func (m *mockedKeyDeriver) GetKeyInformation(
	ctx context.Context, scheme domain.DerivationScheme, script []byte,
) (*domain.KeyPathInfo, error) {
	args := m.Called(ctx, scheme, script)

	var res *domain.KeyPathInfo
	if a := args.Get(0); a != nil {
		res = a.(*domain.KeyPathInfo)
	}
	return res, args.Error(1)
}

type mockedPayoutService struct {
	mock.Mock
}

func (m *mockedPayoutService) GetPayouts(
	ctx context.Context, query domain.PayoutQuery,
) ([]domain.Payout, error) {
	args := m.Called(ctx, query)

	var res []domain.Payout
	if a := args.Get(0); a != nil {
		res = a.([]domain.Payout)
	}
	return res, args.Error(1)
}

func (m *mockedPayoutService) MarkPaid(
	ctx context.Context, storeId, payoutId string, req domain.MarkPayoutRequest,
) error {
	args := m.Called(ctx, storeId, payoutId, req)
	return args.Error(0)
}

type mockedStoreDirectory struct {
	mock.Mock
}

func (m *mockedStoreDirectory) PaymentMethod(
	ctx context.Context, storeId, cryptoCode string,
) (*domain.PaymentMethod, error) {
	args := m.Called(ctx, storeId, cryptoCode)

	var res *domain.PaymentMethod
	if a := args.Get(0); a != nil {
		res = a.(*domain.PaymentMethod)
	}
	return res, args.Error(1)
}

type mockedLocker struct {
	mock.Mock
}

func (m *mockedLocker) FindLocks(ctx context.Context, outpoints []wire.OutPoint) ([]wire.OutPoint, error) {
	args := m.Called(ctx, outpoints)

	var res []wire.OutPoint
	if a := args.Get(0); a != nil {
		res = a.([]wire.OutPoint)
	}
	return res, args.Error(1)
}

func (m *mockedLocker) TryLock(ctx context.Context, outpoint wire.OutPoint) (bool, error) {
	args := m.Called(ctx, outpoint)
	return args.Bool(0), args.Error(1)
}

func (m *mockedLocker) TryUnlock(ctx context.Context, outpoint wire.OutPoint) (bool, error) {
	args := m.Called(ctx, outpoint)
	return args.Bool(0), args.Error(1)
}

type mockedSettingsRepo struct {
	mock.Mock
}

func (m *mockedSettingsRepo) GetSettings(ctx context.Context, storeId string) (*domain.WalletSettings, error) {
	args := m.Called(ctx, storeId)

	var res *domain.WalletSettings
	if a := args.Get(0); a != nil {
		res = a.(*domain.WalletSettings)
	}
	return res, args.Error(1)
}

func (m *mockedSettingsRepo) ListSettings(ctx context.Context) ([]domain.WalletSettings, error) {
	args := m.Called(ctx)

	var res []domain.WalletSettings
	if a := args.Get(0); a != nil {
		res = a.([]domain.WalletSettings)
	}
	return res, args.Error(1)
}

func (m *mockedSettingsRepo) UpsertSettings(ctx context.Context, settings domain.WalletSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

func (m *mockedSettingsRepo) DeleteSettings(ctx context.Context, storeId string) error {
	args := m.Called(ctx, storeId)
	return args.Error(0)
}

func (m *mockedSettingsRepo) Close() {
	m.Called()
}

type mockedScheduler struct {
	mock.Mock
}

func (m *mockedScheduler) Start() {
	m.Called()
}

func (m *mockedScheduler) Stop() {
	m.Called()
}

func (m *mockedScheduler) ScheduleTask(interval time.Duration, immediate bool, task func()) error {
	args := m.Called(interval, immediate, task)
	return args.Error(0)
}

func (m *mockedScheduler) ScheduleTaskOnce(at time.Time, task func()) error {
	args := m.Called(at, task)
	return args.Error(0)
}

// fakeAnalyzer treats 5000 and 10000 sats as standard denominations and
// assigns the configured anonymity set to every wallet output.
type fakeAnalyzer struct {
	anonset float64
	err     error
}

func (a *fakeAnalyzer) Analyze(view *domain.TransactionView) error {
	if a.err != nil {
		return a.err
	}
	for _, out := range view.WalletOutputs {
		out.AnonymitySet = a.anonset
	}
	return nil
}

func (a *fakeAnalyzer) IsStandardDenomination(amount btcutil.Amount) bool {
	return amount == 5000 || amount == 10000
}

func (a *fakeAnalyzer) StandardDenominations() []btcutil.Amount {
	return []btcutil.Amount{5000, 10000}
}

type labelWrite struct {
	wallet domain.WalletId
	object domain.ObjectId
	linkTo *domain.ObjectId
	data   []byte
}

// recordingLabelStore keeps every write in order and serves GetObjects
// from them. Writes matching failOn are rejected, writes of an object
// matching blockOn wait for release to be closed.
type recordingLabelStore struct {
	lock    sync.Mutex
	writes  []labelWrite
	failOn  func(domain.ObjectId) bool
	blockOn func(domain.ObjectId) bool
	blocked chan struct{}
	release chan struct{}
}

func newRecordingLabelStore() *recordingLabelStore {
	return &recordingLabelStore{}
}

func (s *recordingLabelStore) AddOrUpdateObject(
	_ context.Context, wallet domain.WalletId, obj domain.WalletObject,
) error {
	if s.blockOn != nil && s.blockOn(obj.ObjectId) {
		close(s.blocked)
		<-s.release
	}
	if s.failOn != nil && s.failOn(obj.ObjectId) {
		return fmt.Errorf("write rejected")
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.writes = append(s.writes, labelWrite{wallet: wallet, object: obj.ObjectId, data: obj.Data})
	return nil
}

func (s *recordingLabelStore) AddOrUpdateLink(
	_ context.Context, wallet domain.WalletId, a, b domain.ObjectId,
) error {
	if s.failOn != nil && (s.failOn(a) || s.failOn(b)) {
		return fmt.Errorf("write rejected")
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.writes = append(s.writes, labelWrite{wallet: wallet, object: a, linkTo: &b})
	return nil
}

func (s *recordingLabelStore) GetObjects(
	_ context.Context, wallet domain.WalletId, query domain.ObjectQuery,
) ([]domain.ObjectInfo, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	ids := make(map[string]struct{})
	for _, id := range query.Ids {
		ids[id] = struct{}{}
	}

	objects := make(map[domain.ObjectId]*domain.ObjectInfo)
	order := make([]domain.ObjectId, 0)
	for _, w := range s.writes {
		if w.wallet != wallet || w.linkTo != nil {
			continue
		}
		if w.object.Type != query.Type {
			continue
		}
		if _, ok := ids[w.object.Id]; len(ids) > 0 && !ok {
			continue
		}
		if _, ok := objects[w.object]; !ok {
			order = append(order, w.object)
			objects[w.object] = &domain.ObjectInfo{ObjectId: w.object}
		}
		objects[w.object].Data = w.data
	}
	for _, w := range s.writes {
		if w.wallet != wallet || w.linkTo == nil {
			continue
		}
		if obj, ok := objects[w.object]; ok {
			obj.Links = append(obj.Links, domain.ObjectLink{ObjectId: *w.linkTo, ObjectData: s.dataOf(wallet, *w.linkTo)})
		}
		if obj, ok := objects[*w.linkTo]; ok {
			obj.Links = append(obj.Links, domain.ObjectLink{ObjectId: w.object, ObjectData: s.dataOf(wallet, w.object)})
		}
	}

	res := make([]domain.ObjectInfo, 0, len(order))
	for _, id := range order {
		res = append(res, *objects[id])
	}
	return res, nil
}

func (s *recordingLabelStore) dataOf(wallet domain.WalletId, obj domain.ObjectId) []byte {
	var data []byte
	for _, w := range s.writes {
		if w.wallet == wallet && w.linkTo == nil && w.object == obj {
			data = w.data
		}
	}
	return data
}

func (s *recordingLabelStore) snapshot() []labelWrite {
	s.lock.Lock()
	defer s.lock.Unlock()

	return append([]labelWrite{}, s.writes...)
}

func (s *recordingLabelStore) hasObject(wallet domain.WalletId, obj domain.ObjectId) bool {
	for _, w := range s.snapshot() {
		if w.wallet == wallet && w.linkTo == nil && w.object == obj {
			return true
		}
	}
	return false
}

func (s *recordingLabelStore) hasLink(wallet domain.WalletId, a, b domain.ObjectId) bool {
	for _, w := range s.snapshot() {
		if w.wallet == wallet && w.linkTo != nil && w.object == a && *w.linkTo == b {
			return true
		}
	}
	return false
}
