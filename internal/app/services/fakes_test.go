package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/semscan/semscan-api/internal/app/models"
	"github.com/semscan/semscan-api/internal/config"
	"github.com/semscan/semscan-api/internal/pkg/apperrors"
)

// regKey identifies a registration by its composite key.
type regKey struct {
	slotID   int64
	username string
}

// memStores is an in-memory implementation of every store interface, shared by
// the service tests. All methods operate on the same maps, so a memTxRunner
// "transaction" sees the same state as direct store access.
type memStores struct {
	mu            sync.Mutex
	slots         map[int64]*models.SeminarSlot
	presenters    map[string]*models.Presenter
	registrations map[regKey]*models.Registration
	entries       map[int64]*models.WaitingListEntry
	promotions    []*models.WaitingListPromotion
	nextSlotID    int64
	nextEntryID   int64
	nextPromoID   int64
}

func newMemStores() *memStores {
	return &memStores{
		slots:         make(map[int64]*models.SeminarSlot),
		presenters:    make(map[string]*models.Presenter),
		registrations: make(map[regKey]*models.Registration),
		entries:       make(map[int64]*models.WaitingListEntry),
	}
}

func (m *memStores) stores() Stores {
	return Stores{
		Slots:         &memSlotStore{m: m},
		Presenters:    &memPresenterStore{m: m},
		Registrations: &memRegistrationStore{m: m},
		WaitingList:   &memWaitingListStore{m: m},
		Promotions:    &memPromotionStore{m: m},
	}
}

// memTxRunner runs the function against the same in-memory stores. Rollback is
// not simulated: the tests only exercise paths where the transaction commits.
type memTxRunner struct {
	m *memStores
}

func (r *memTxRunner) InTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error {
	return fn(ctx, r.m.stores())
}

// --- slots ---

type memSlotStore struct{ m *memStores }

func (s *memSlotStore) GetByID(ctx context.Context, slotID int64) (*models.SeminarSlot, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	slot, ok := s.m.slots[slotID]
	if !ok {
		return nil, apperrors.ErrSlotNotFound
	}
	cp := *slot
	return &cp, nil
}

func (s *memSlotStore) LockForUpdate(ctx context.Context, slotID int64) (*models.SeminarSlot, error) {
	return s.GetByID(ctx, slotID)
}

func (s *memSlotStore) List(ctx context.Context) ([]models.SeminarSlot, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	out := make([]models.SeminarSlot, 0, len(s.m.slots))
	for _, slot := range s.m.slots {
		out = append(out, *slot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memSlotStore) Create(ctx context.Context, slot *models.SeminarSlot) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.nextSlotID++
	slot.ID = s.m.nextSlotID
	cp := *slot
	s.m.slots[slot.ID] = &cp
	return nil
}

// --- presenters ---

type memPresenterStore struct{ m *memStores }

func (s *memPresenterStore) GetByUsername(ctx context.Context, username string) (*models.Presenter, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	p, ok := s.m.presenters[username]
	if !ok {
		return nil, apperrors.ErrPresenterNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memPresenterStore) Create(ctx context.Context, p *models.Presenter) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.presenters[p.Username]; ok {
		return apperrors.ErrConflict
	}
	cp := *p
	s.m.presenters[p.Username] = &cp
	return nil
}

// --- registrations ---

type memRegistrationStore struct{ m *memStores }

func (s *memRegistrationStore) Get(ctx context.Context, slotID int64, username string) (*models.Registration, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	reg, ok := s.m.registrations[regKey{slotID, username}]
	if !ok {
		return nil, apperrors.ErrRegistrationNotFound
	}
	cp := *reg
	return &cp, nil
}

func (s *memRegistrationStore) GetForUpdate(ctx context.Context, slotID int64, username string) (*models.Registration, error) {
	return s.Get(ctx, slotID, username)
}

func (s *memRegistrationStore) GetByToken(ctx context.Context, token string) (*models.Registration, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, reg := range s.m.registrations {
		if reg.ApprovalToken != nil && *reg.ApprovalToken == token {
			cp := *reg
			return &cp, nil
		}
	}
	return nil, apperrors.ErrTokenInvalid
}

func (s *memRegistrationStore) GetByTokenForUpdate(ctx context.Context, token string) (*models.Registration, error) {
	return s.GetByToken(ctx, token)
}

func (s *memRegistrationStore) ListActiveBySlot(ctx context.Context, slotID int64) ([]models.Registration, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []models.Registration
	for _, reg := range s.m.registrations {
		if reg.SlotID == slotID && reg.ApprovalStatus.Active() {
			out = append(out, *reg)
		}
	}
	return out, nil
}

func (s *memRegistrationStore) ListActiveByPresenter(ctx context.Context, username string) ([]models.Registration, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []models.Registration
	for _, reg := range s.m.registrations {
		if reg.PresenterUsername == username && reg.ApprovalStatus.Active() {
			out = append(out, *reg)
		}
	}
	return out, nil
}

func (s *memRegistrationStore) ListExpiredPending(ctx context.Context, now time.Time) ([]models.Registration, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []models.Registration
	for _, reg := range s.m.registrations {
		if reg.ApprovalStatus == models.ApprovalStatusPending && reg.TokenExpired(now) {
			out = append(out, *reg)
		}
	}
	return out, nil
}

func (s *memRegistrationStore) Upsert(ctx context.Context, reg *models.Registration) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	cp := *reg
	s.m.registrations[regKey{reg.SlotID, reg.PresenterUsername}] = &cp
	return nil
}

func (s *memRegistrationStore) MarkApproved(ctx context.Context, slotID int64, username string, now time.Time) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	reg, ok := s.m.registrations[regKey{slotID, username}]
	if !ok {
		return apperrors.ErrRegistrationNotFound
	}
	reg.ApprovalStatus = models.ApprovalStatusApproved
	reg.ApprovedAt = &now
	return nil
}

func (s *memRegistrationStore) MarkDeclined(ctx context.Context, slotID int64, username string, reason *string, now time.Time) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	reg, ok := s.m.registrations[regKey{slotID, username}]
	if !ok {
		return apperrors.ErrRegistrationNotFound
	}
	reg.ApprovalStatus = models.ApprovalStatusDeclined
	reg.DeclinedAt = &now
	reg.DeclinedReason = reason
	return nil
}

func (s *memRegistrationStore) MarkExpired(ctx context.Context, slotID int64, username string, now time.Time) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	reg, ok := s.m.registrations[regKey{slotID, username}]
	if !ok {
		return apperrors.ErrRegistrationNotFound
	}
	reg.ApprovalStatus = models.ApprovalStatusExpired
	return nil
}

func (s *memRegistrationStore) CancelOtherPending(ctx context.Context, username string, exceptSlotID int64, now time.Time) ([]int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var freed []int64
	for _, reg := range s.m.registrations {
		if reg.PresenterUsername == username && reg.SlotID != exceptSlotID &&
			reg.ApprovalStatus == models.ApprovalStatusPending {
			reg.ApprovalStatus = models.ApprovalStatusCancelled
			freed = append(freed, reg.SlotID)
		}
	}
	return freed, nil
}

// --- waiting list ---

type memWaitingListStore struct{ m *memStores }

func (s *memWaitingListStore) Get(ctx context.Context, slotID int64, username string) (*models.WaitingListEntry, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, e := range s.m.entries {
		if e.SlotID == slotID && e.PresenterUsername == username {
			cp := *e
			return &cp, nil
		}
	}
	return nil, apperrors.ErrWaitingListEntryNotFound
}

func (s *memWaitingListStore) GetHeadForUpdate(ctx context.Context, slotID int64) (*models.WaitingListEntry, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var head *models.WaitingListEntry
	for _, e := range s.m.entries {
		if e.SlotID != slotID {
			continue
		}
		if head == nil || e.Position < head.Position {
			head = e
		}
	}
	if head == nil {
		return nil, apperrors.ErrWaitingListEntryNotFound
	}
	cp := *head
	return &cp, nil
}

func (s *memWaitingListStore) GetByToken(ctx context.Context, token string) (*models.WaitingListEntry, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, e := range s.m.entries {
		if e.PromotionToken != nil && *e.PromotionToken == token {
			cp := *e
			return &cp, nil
		}
	}
	return nil, apperrors.ErrTokenInvalid
}

func (s *memWaitingListStore) GetByTokenForUpdate(ctx context.Context, token string) (*models.WaitingListEntry, error) {
	return s.GetByToken(ctx, token)
}

func (s *memWaitingListStore) ListBySlot(ctx context.Context, slotID int64) ([]models.WaitingListEntry, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []models.WaitingListEntry
	for _, e := range s.m.entries {
		if e.SlotID == slotID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (s *memWaitingListStore) ListExpiredOffers(ctx context.Context, now time.Time) ([]models.WaitingListEntry, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []models.WaitingListEntry
	for _, e := range s.m.entries {
		if e.OfferExpired(now) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *memWaitingListStore) CountBySlot(ctx context.Context, slotID int64) (int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	count := 0
	for _, e := range s.m.entries {
		if e.SlotID == slotID {
			count++
		}
	}
	return count, nil
}

func (s *memWaitingListStore) ExistsForPresenter(ctx context.Context, username string) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, e := range s.m.entries {
		if e.PresenterUsername == username {
			return true, nil
		}
	}
	return false, nil
}

func (s *memWaitingListStore) MaxPosition(ctx context.Context, slotID int64) (int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	max := 0
	for _, e := range s.m.entries {
		if e.SlotID == slotID && e.Position > max {
			max = e.Position
		}
	}
	return max, nil
}

func (s *memWaitingListStore) Insert(ctx context.Context, e *models.WaitingListEntry) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, existing := range s.m.entries {
		if existing.PresenterUsername == e.PresenterUsername {
			return apperrors.ErrAlreadyQueued
		}
	}
	s.m.nextEntryID++
	e.ID = s.m.nextEntryID
	cp := *e
	s.m.entries[e.ID] = &cp
	return nil
}

func (s *memWaitingListStore) Remove(ctx context.Context, entry *models.WaitingListEntry) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	stored, ok := s.m.entries[entry.ID]
	if !ok {
		return apperrors.ErrWaitingListEntryNotFound
	}
	delete(s.m.entries, entry.ID)
	for _, e := range s.m.entries {
		if e.SlotID == stored.SlotID && e.Position > stored.Position {
			e.Position--
		}
	}
	return nil
}

func (s *memWaitingListStore) RemoveForPresenter(ctx context.Context, username string) (*models.WaitingListEntry, error) {
	s.m.mu.Lock()
	var found *models.WaitingListEntry
	for _, e := range s.m.entries {
		if e.PresenterUsername == username {
			cp := *e
			found = &cp
			break
		}
	}
	s.m.mu.Unlock()
	if found == nil {
		return nil, nil
	}
	if err := s.Remove(ctx, found); err != nil {
		return nil, err
	}
	return found, nil
}

func (s *memWaitingListStore) SetPromotionToken(ctx context.Context, entryID int64, token string, offeredAt, expiresAt time.Time) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	e, ok := s.m.entries[entryID]
	if !ok {
		return apperrors.ErrWaitingListEntryNotFound
	}
	e.PromotionToken = &token
	e.PromotionOfferedAt = &offeredAt
	e.PromotionExpiresAt = &expiresAt
	return nil
}

func (s *memWaitingListStore) ClearPromotionToken(ctx context.Context, entryID int64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	e, ok := s.m.entries[entryID]
	if !ok {
		return apperrors.ErrWaitingListEntryNotFound
	}
	e.PromotionToken = nil
	e.PromotionOfferedAt = nil
	e.PromotionExpiresAt = nil
	return nil
}

// --- promotions ---

type memPromotionStore struct{ m *memStores }

func (s *memPromotionStore) Insert(ctx context.Context, p *models.WaitingListPromotion) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.nextPromoID++
	p.ID = s.m.nextPromoID
	cp := *p
	s.m.promotions = append(s.m.promotions, &cp)
	return nil
}

func (s *memPromotionStore) Resolve(ctx context.Context, slotID int64, username string, status models.PromotionStatus, reason *string, now time.Time) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, p := range s.m.promotions {
		if p.SlotID == slotID && p.PresenterUsername == username && p.Status == models.PromotionStatusPending {
			p.Status = status
			p.ResolvedAt = &now
			p.ResolvedReason = reason
			return nil
		}
	}
	return apperrors.ErrAlreadyResolved
}

func (s *memPromotionStore) ListBySlot(ctx context.Context, slotID int64) ([]models.WaitingListPromotion, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []models.WaitingListPromotion
	for _, p := range s.m.promotions {
		if p.SlotID == slotID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OfferedAt.After(out[j].OfferedAt) })
	return out, nil
}

// --- notifier ---

// fakeNotifier records every send for assertion.
type fakeNotifier struct {
	mu               sync.Mutex
	approvalRequests []string // approval tokens handed to supervisors
	approvalResults  []bool
	promotionOffers  []string // promotion tokens handed to presenters
	cancellations    []string // usernames whose queue place was cancelled
}

func (n *fakeNotifier) SendApprovalRequest(p *models.Presenter, slot *models.SeminarSlot, reg *models.Registration, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.approvalRequests = append(n.approvalRequests, token)
	return nil
}

func (n *fakeNotifier) SendApprovalResult(p *models.Presenter, slot *models.SeminarSlot, approved bool, reason string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.approvalResults = append(n.approvalResults, approved)
	return nil
}

func (n *fakeNotifier) SendPromotionOffer(p *models.Presenter, slot *models.SeminarSlot, entry *models.WaitingListEntry, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.promotionOffers = append(n.promotionOffers, token)
	return nil
}

func (n *fakeNotifier) SendWaitingListCancellation(entry *models.WaitingListEntry, slot *models.SeminarSlot) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancellations = append(n.cancellations, entry.PresenterUsername)
	return nil
}

func (n *fakeNotifier) lastPromotionToken() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.promotionOffers) == 0 {
		return ""
	}
	return n.promotionOffers[len(n.promotionOffers)-1]
}

// --- fixture ---

// fixture wires every service against the shared in-memory stores.
type fixture struct {
	cfg         *config.Config
	mem         *memStores
	stores      Stores
	notifier    *fakeNotifier
	capacity    *CapacityService
	approval    *ApprovalService
	waitingList *WaitingListService
	promotion   *PromotionService
	slots       *SlotService
}

func newFixture() *fixture {
	cfg := &config.Config{}
	cfg.Seminar.PhDWeight = 2
	cfg.Seminar.MScWeight = 1
	cfg.Seminar.ApprovalTokenTTL = "336h"
	cfg.Seminar.PromotionTokenTTL = "24h"

	mem := newMemStores()
	stores := mem.stores()
	runner := &memTxRunner{m: mem}
	notifier := &fakeNotifier{}

	capacity := NewCapacityService(cfg, stores)

	return &fixture{
		cfg:         cfg,
		mem:         mem,
		stores:      stores,
		notifier:    notifier,
		capacity:    capacity,
		approval:    NewApprovalService(cfg, runner, stores, capacity, notifier),
		waitingList: NewWaitingListService(cfg, runner, stores, notifier),
		promotion:   NewPromotionService(cfg, runner, stores, capacity, notifier),
		slots:       NewSlotService(stores, capacity),
	}
}

func (f *fixture) addSlot(capacity int) *models.SeminarSlot {
	slot := &models.SeminarSlot{
		SlotDate:  time.Now().AddDate(0, 0, 14),
		StartTime: "14:00",
		EndTime:   "16:00",
		Building:  "Main Building",
		Room:      "Lecture Hall 2",
		Capacity:  capacity,
	}
	if err := f.stores.Slots.Create(context.Background(), slot); err != nil {
		panic(err)
	}
	return slot
}

func (f *fixture) addPresenter(username string, degree models.Degree) *models.Presenter {
	p := &models.Presenter{
		Username:  username,
		FirstName: "Test",
		LastName:  username,
		Email:     username + "@semscan.local",
		Degree:    degree,
	}
	if err := f.stores.Presenters.Create(context.Background(), p); err != nil {
		panic(err)
	}
	return p
}
