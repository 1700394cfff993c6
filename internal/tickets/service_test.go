package tickets

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chaf-events/backend/internal/lifecycle"
	"github.com/chaf-events/backend/internal/models"
)

// fakeStore is an in-memory Store with the same atomicity guarantees as the
// SQL implementation: Mint is first-writer-wins per registration and
// ClaimCheckIn is a compare-and-set on checked_in.
type fakeStore struct {
	mu      sync.Mutex
	tickets map[string]*models.Ticket // key: kind + "/" + registrationID
	holders map[string]*models.CustomTicket
	regs    map[uuid.UUID]*fakeReg
}

type fakeReg struct {
	kind     string
	tracking string
	state    lifecycle.State
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tickets: make(map[string]*models.Ticket),
		holders: make(map[string]*models.CustomTicket),
		regs:    make(map[uuid.UUID]*fakeReg),
	}
}

func regKey(kind string, id uuid.UUID) string { return kind + "/" + id.String() }

func (f *fakeStore) GetByRegistration(_ context.Context, kind string, registrationID uuid.UUID) (*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[regKey(kind, registrationID)]
	if !ok {
		return nil, lifecycle.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeStore) GetByTicketNumber(_ context.Context, ticketNumber string) (*models.Ticket, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, t := range f.tickets {
		if t.TicketNumber == ticketNumber {
			cp := *t
			return &cp, key[:len(key)-len("/")-36], nil
		}
	}
	return nil, "", lifecycle.ErrNotFound
}

func (f *fakeStore) Mint(_ context.Context, kind string, t *models.Ticket) (*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := regKey(kind, t.RegistrationID)
	if existing, ok := f.tickets[key]; ok {
		cp := *existing
		return &cp, nil
	}
	stored := *t
	stored.ID = uuid.New()
	stored.CreatedAt = time.Now()
	f.tickets[key] = &stored
	cp := stored
	return &cp, nil
}

func (f *fakeStore) ClaimCheckIn(_ context.Context, kind string, ticketID uuid.UUID, operator string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tickets {
		if t.ID == ticketID {
			if t.CheckedIn {
				return false, nil
			}
			now := time.Now()
			t.CheckedIn = true
			t.CheckedInAt = &now
			t.CheckedInBy = operator
			return true, nil
		}
	}
	return false, lifecycle.ErrNotFound
}

func (f *fakeStore) RegistrationState(_ context.Context, kind string, registrationID uuid.UUID) (lifecycle.State, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	reg, ok := f.regs[registrationID]
	if !ok {
		return lifecycle.State{}, "", lifecycle.ErrNotFound
	}
	return reg.state, reg.tracking, nil
}

func (f *fakeStore) MintHolder(_ context.Context, t *models.CustomTicket) (*models.CustomTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := t.RegistrationID.String() + "/" + t.CategoryID.String() + "/" + t.Name
	if existing, ok := f.holders[key]; ok {
		cp := *existing
		return &cp, nil
	}
	stored := *t
	stored.ID = uuid.New()
	f.holders[key] = &stored
	cp := stored
	return &cp, nil
}

func (f *fakeStore) ListHolders(_ context.Context, registrationID uuid.UUID) ([]models.CustomTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.CustomTicket
	for _, t := range f.holders {
		if t.RegistrationID == registrationID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeStore) SetPDFURL(_ context.Context, kind string, ticketID uuid.UUID, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tickets {
		if t.ID == ticketID {
			t.PDFURL = url
			return nil
		}
	}
	return lifecycle.ErrNotFound
}

// fakeResolver implements RegistrationResolver and IndividualSource over the
// fakeStore's registration table.
type fakeResolver struct {
	store       *fakeStore
	individuals map[string]*models.IndividualRegistration
}

func (r *fakeResolver) FindByTracking(_ context.Context, tracking string) (uuid.UUID, string, string, int64, lifecycle.State, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for id, reg := range r.store.regs {
		if reg.tracking == tracking {
			return id, reg.kind, "", 0, reg.state, nil
		}
	}
	return uuid.Nil, "", "", 0, lifecycle.State{}, lifecycle.ErrNotFound
}

func (r *fakeResolver) GetIndividualByTracking(_ context.Context, tracking string) (*models.IndividualRegistration, error) {
	reg, ok := r.individuals[tracking]
	if !ok {
		return nil, lifecycle.ErrNotFound
	}
	cp := *reg
	// Keep the lifecycle fields in sync with the store.
	if sReg, sOK := r.store.regs[reg.ID]; sOK {
		cp.PaymentStatus = sReg.state.PaymentStatus
		cp.AdminVerified = sReg.state.AdminVerified
	}
	return &cp, nil
}

type fakeCategories struct{ cats map[uuid.UUID]models.Category }

func (f *fakeCategories) GetByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	cat, ok := f.cats[id]
	if !ok {
		return nil, lifecycle.ErrNotFound
	}
	return &cat, nil
}

func newTestService(store *fakeStore, resolver *fakeResolver, cats *fakeCategories) *Service {
	if cats == nil {
		cats = &fakeCategories{cats: map[uuid.UUID]models.Category{}}
	}
	return NewService(store, resolver, resolver, cats, "CHAF Competition 2025", zap.NewNop())
}

func addRegistration(store *fakeStore, kind, tracking string, state lifecycle.State) uuid.UUID {
	id := uuid.New()
	store.regs[id] = &fakeReg{kind: kind, tracking: tracking, state: state}
	return id
}

func verified() lifecycle.State {
	return lifecycle.State{PaymentStatus: lifecycle.StatusPaid, AdminVerified: true}
}

func TestIssue(t *testing.T) {
	t.Run("unverified registration gets no ticket", func(t *testing.T) {
		store := newFakeStore()
		resolver := &fakeResolver{store: store}
		addRegistration(store, models.KindIndividual, "CHAF-AAAA2222",
			lifecycle.State{PaymentStatus: lifecycle.StatusAwaitingVerification})
		svc := newTestService(store, resolver, nil)

		_, _, err := svc.Issue(context.Background(), "CHAF-AAAA2222")
		if !errors.Is(err, lifecycle.ErrNotEligible) {
			t.Fatalf("err = %v, want ErrNotEligible", err)
		}
		if len(store.tickets) != 0 {
			t.Error("ticket minted for unverified registration")
		}
	})

	t.Run("repeated issue returns the same ticket", func(t *testing.T) {
		store := newFakeStore()
		resolver := &fakeResolver{store: store}
		addRegistration(store, models.KindIndividual, "CHAF-BBBB3333", verified())
		svc := newTestService(store, resolver, nil)

		first, _, err := svc.Issue(context.Background(), "CHAF-BBBB3333")
		if err != nil {
			t.Fatalf("first issue: %v", err)
		}
		second, _, err := svc.Issue(context.Background(), "CHAF-BBBB3333")
		if err != nil {
			t.Fatalf("second issue: %v", err)
		}
		if first.ID != second.ID || first.TicketNumber != second.TicketNumber {
			t.Errorf("re-issue produced a different ticket: %v vs %v", first.TicketNumber, second.TicketNumber)
		}
		if first.TicketNumber != "CHAF-BBBB3333-TKT" {
			t.Errorf("ticket number = %q", first.TicketNumber)
		}
	})

	t.Run("concurrent first issue converges on one ticket", func(t *testing.T) {
		store := newFakeStore()
		resolver := &fakeResolver{store: store}
		addRegistration(store, models.KindIndividual, "CHAF-CCCC4444", verified())
		svc := newTestService(store, resolver, nil)

		const n = 16
		results := make([]*models.Ticket, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], _, _ = svc.Issue(context.Background(), "CHAF-CCCC4444")
			}(i)
		}
		wg.Wait()

		for i := 1; i < n; i++ {
			if results[i] == nil || results[0] == nil {
				t.Fatal("issue returned nil ticket")
			}
			if results[i].ID != results[0].ID {
				t.Fatal("concurrent issues produced different tickets")
			}
		}
	})
}

func TestCheckIn(t *testing.T) {
	t.Run("unknown ticket", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store, &fakeResolver{store: store}, nil)
		_, _, err := svc.CheckIn(context.Background(), "CHAF-XXXX9999-TKT", "gate1")
		if !errors.Is(err, lifecycle.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("unverified registration is rejected distinctly", func(t *testing.T) {
		store := newFakeStore()
		resolver := &fakeResolver{store: store}
		regID := addRegistration(store, models.KindIndividual, "CHAF-DDDD5555", verified())
		svc := newTestService(store, resolver, nil)

		if _, _, err := svc.Issue(context.Background(), "CHAF-DDDD5555"); err != nil {
			t.Fatalf("issue: %v", err)
		}
		// Verification later revoked: ticket exists but access predicate fails.
		store.regs[regID].state = lifecycle.State{PaymentStatus: lifecycle.StatusPending}

		_, _, err := svc.CheckIn(context.Background(), "CHAF-DDDD5555-TKT", "gate1")
		if !errors.Is(err, lifecycle.ErrNotVerified) {
			t.Errorf("err = %v, want ErrNotVerified", err)
		}
	})

	t.Run("second check-in rejected", func(t *testing.T) {
		store := newFakeStore()
		resolver := &fakeResolver{store: store}
		addRegistration(store, models.KindIndividual, "CHAF-EEEE6666", verified())
		svc := newTestService(store, resolver, nil)

		if _, _, err := svc.Issue(context.Background(), "CHAF-EEEE6666"); err != nil {
			t.Fatalf("issue: %v", err)
		}
		got, _, err := svc.CheckIn(context.Background(), "CHAF-EEEE6666-TKT", "gate1")
		if err != nil {
			t.Fatalf("first check-in: %v", err)
		}
		if !got.CheckedIn || got.CheckedInBy != "gate1" || got.CheckedInAt == nil {
			t.Errorf("check-in not recorded: %+v", got)
		}

		_, _, err = svc.CheckIn(context.Background(), "CHAF-EEEE6666-TKT", "gate2")
		if !errors.Is(err, lifecycle.ErrAlreadyCheckedIn) {
			t.Errorf("err = %v, want ErrAlreadyCheckedIn", err)
		}
	})

	t.Run("exactly one concurrent check-in wins", func(t *testing.T) {
		store := newFakeStore()
		resolver := &fakeResolver{store: store}
		addRegistration(store, models.KindIndividual, "CHAF-FFFF7777", verified())
		svc := newTestService(store, resolver, nil)

		if _, _, err := svc.Issue(context.Background(), "CHAF-FFFF7777"); err != nil {
			t.Fatalf("issue: %v", err)
		}

		const n = 32
		var wg sync.WaitGroup
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, _, errs[i] = svc.CheckIn(context.Background(), "CHAF-FFFF7777-TKT", "gate")
			}(i)
		}
		wg.Wait()

		wins, dups := 0, 0
		for _, err := range errs {
			switch {
			case err == nil:
				wins++
			case errors.Is(err, lifecycle.ErrAlreadyCheckedIn):
				dups++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if wins != 1 {
			t.Errorf("wins = %d, want exactly 1", wins)
		}
		if dups != n-1 {
			t.Errorf("duplicates = %d, want %d", dups, n-1)
		}
	})
}

func TestIssueHolder(t *testing.T) {
	store := newFakeStore()
	resolver := &fakeResolver{store: store}
	addRegistration(store, models.KindSchool, "CHAF-GGGG8888", verified())
	quiz := uuid.New()
	cats := &fakeCategories{cats: map[uuid.UUID]models.Category{
		quiz: {ID: quiz, Name: "Quiz", Fee: 100000, MaxParticipants: 3},
	}}
	svc := newTestService(store, resolver, cats)

	t.Run("repeat mint returns the same holder ticket", func(t *testing.T) {
		a, err := svc.IssueHolder(context.Background(), "CHAF-GGGG8888", quiz, "Ada Obi", "participant")
		if err != nil {
			t.Fatalf("first mint: %v", err)
		}
		b, err := svc.IssueHolder(context.Background(), "CHAF-GGGG8888", quiz, "Ada Obi", "participant")
		if err != nil {
			t.Fatalf("second mint: %v", err)
		}
		if a.ID != b.ID || a.TicketNumber != b.TicketNumber {
			t.Error("repeat mint produced a new ticket")
		}
	})

	t.Run("individual registrations cannot hold holder tickets", func(t *testing.T) {
		addRegistration(store, models.KindIndividual, "CHAF-HHHH9999", verified())
		if _, err := svc.IssueHolder(context.Background(), "CHAF-HHHH9999", quiz, "Ada", ""); err == nil {
			t.Error("expected error")
		}
	})
}

func TestCertificate(t *testing.T) {
	store := newFakeStore()
	regID := addRegistration(store, models.KindIndividual, "CHAF-JJJJ2222", verified())
	resolver := &fakeResolver{
		store: store,
		individuals: map[string]*models.IndividualRegistration{
			"CHAF-JJJJ2222": {
				ID: regID, TrackingNumber: "CHAF-JJJJ2222", FullName: "Ada Obi",
				Gender: "female", State: "Lagos", LGA: "Ikeja",
			},
		},
	}
	svc := newTestService(store, resolver, nil)

	t.Run("before check-in", func(t *testing.T) {
		if _, err := svc.Certificate(context.Background(), "CHAF-JJJJ2222"); !errors.Is(err, lifecycle.ErrNotYetEligible) {
			t.Errorf("err = %v, want ErrNotYetEligible", err)
		}
	})

	t.Run("after check-in", func(t *testing.T) {
		if _, _, err := svc.Issue(context.Background(), "CHAF-JJJJ2222"); err != nil {
			t.Fatalf("issue: %v", err)
		}
		if _, _, err := svc.CheckIn(context.Background(), "CHAF-JJJJ2222-TKT", "gate1"); err != nil {
			t.Fatalf("check-in: %v", err)
		}
		cert, err := svc.Certificate(context.Background(), "CHAF-JJJJ2222")
		if err != nil {
			t.Fatalf("certificate: %v", err)
		}
		if cert.ParticipantName != "Ada Obi" || cert.EventName != "CHAF Competition 2025" {
			t.Errorf("certificate = %+v", cert)
		}
		if cert.CheckedInAt.IsZero() {
			t.Error("certificate missing check-in time")
		}
	})
}
