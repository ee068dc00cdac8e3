package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deshikart/shopapi/internal/domain"
	"github.com/deshikart/shopapi/internal/gateway"
	"github.com/deshikart/shopapi/internal/repository"
	"github.com/deshikart/shopapi/pkg/errors"
)

// fakeCheckoutRepo is an in-memory CheckoutRepository with the same
// compare-and-set semantics as the postgres implementation. Mutex-guarded
// so the concurrency tests exercise real interleavings.
type fakeCheckoutRepo struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]*domain.Checkout
	byTran map[string]uuid.UUID
}

func newFakeCheckoutRepo() *fakeCheckoutRepo {
	return &fakeCheckoutRepo{
		byID:   make(map[uuid.UUID]*domain.Checkout),
		byTran: make(map[string]uuid.UUID),
	}
}

func cloneCheckout(c *domain.Checkout) *domain.Checkout {
	out := *c
	out.Items = append([]domain.CheckoutItem(nil), c.Items...)
	out.Callbacks = append([]domain.CallbackEntry(nil), c.Callbacks...)
	return &out
}

func (r *fakeCheckoutRepo) Create(ctx context.Context, checkout *domain.Checkout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	checkout.CreatedAt = now
	checkout.UpdatedAt = now
	r.byID[checkout.ID] = cloneCheckout(checkout)
	return nil
}

func (r *fakeCheckoutRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Checkout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "checkout", ID: id.String()}
	}
	return cloneCheckout(c), nil
}

func (r *fakeCheckoutRepo) GetByTransactionID(ctx context.Context, tranID string) (*domain.Checkout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byTran[tranID]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "checkout", ID: tranID}
	}
	return cloneCheckout(r.byID[id]), nil
}

func (r *fakeCheckoutRepo) MarkInitiated(ctx context.Context, id uuid.UUID, tranID string, details domain.PaymentDetails) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return false, nil
	}
	eligible := c.PaymentStatus == domain.PaymentStatusPending ||
		c.PaymentStatus == domain.PaymentStatusFailed ||
		c.PaymentStatus == domain.PaymentStatusCancelled
	if !eligible || c.IsPaid {
		return false, nil
	}
	c.PaymentStatus = domain.PaymentStatusInitiated
	c.SSLTransactionID = tranID
	c.PaymentDetails = details
	c.UpdatedAt = time.Now().UTC()
	r.byTran[tranID] = id
	return true, nil
}

func (r *fakeCheckoutRepo) MarkPaid(ctx context.Context, tranID string, paidAt time.Time, details domain.PaymentDetails) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byTran[tranID]
	if !ok {
		return false, nil
	}
	c := r.byID[id]
	if c.IsPaid {
		return false, nil
	}
	c.IsPaid = true
	c.PaidAt = &paidAt
	c.PaymentStatus = domain.PaymentStatusCompleted
	c.PaymentDetails = details
	c.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *fakeCheckoutRepo) MarkFailed(ctx context.Context, tranID string, details domain.PaymentDetails) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byTran[tranID]
	if !ok {
		return false, nil
	}
	c := r.byID[id]
	if c.IsPaid {
		return false, nil
	}
	c.PaymentStatus = domain.PaymentStatusFailed
	c.PaymentDetails = details
	c.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *fakeCheckoutRepo) MarkCancelled(ctx context.Context, tranID string, details domain.PaymentDetails) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byTran[tranID]
	if !ok {
		return false, nil
	}
	c := r.byID[id]
	if c.IsPaid {
		return false, nil
	}
	c.PaymentStatus = domain.PaymentStatusCancelled
	c.PaymentDetails = details
	c.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *fakeCheckoutRepo) Finalize(ctx context.Context, id uuid.UUID, orderID uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok || c.IsFinalized {
		return false, nil
	}
	c.IsFinalized = true
	c.FinalizedAt = &at
	c.OrderID = &orderID
	c.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *fakeCheckoutRepo) AppendCallback(ctx context.Context, id uuid.UUID, entry domain.CallbackEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return &errors.ErrNotFound{Resource: "checkout", ID: id.String()}
	}
	c.Callbacks = append(c.Callbacks, entry)
	return nil
}

func (r *fakeCheckoutRepo) UpdatePayment(ctx context.Context, checkout *domain.Checkout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[checkout.ID]
	if !ok {
		return &errors.ErrNotFound{Resource: "checkout", ID: checkout.ID.String()}
	}
	c.PaymentStatus = checkout.PaymentStatus
	c.PaymentDetails = checkout.PaymentDetails
	if checkout.SSLTransactionID != "" {
		c.SSLTransactionID = checkout.SSLTransactionID
		r.byTran[checkout.SSLTransactionID] = c.ID
	}
	// is_paid is monotonic
	if checkout.IsPaid && !c.IsPaid {
		c.IsPaid = true
		c.PaidAt = checkout.PaidAt
	}
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// fakeOrderRepo is an in-memory OrderRepository enforcing one order per
// checkout id, like the unique constraint in postgres.
type fakeOrderRepo struct {
	mu         sync.Mutex
	byID       map[uuid.UUID]*domain.Order
	byCheckout map[uuid.UUID]uuid.UUID
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		byID:       make(map[uuid.UUID]*domain.Order),
		byCheckout: make(map[uuid.UUID]uuid.UUID),
	}
}

func cloneOrder(o *domain.Order) *domain.Order {
	out := *o
	out.Items = append([]domain.CheckoutItem(nil), o.Items...)
	return &out
}

func (r *fakeOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Conflicting insert is a silent no-op; callers read back by checkout id
	if _, exists := r.byCheckout[order.CheckoutID]; exists {
		return nil
	}
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now
	r.byID[order.ID] = cloneOrder(order)
	r.byCheckout[order.CheckoutID] = order.ID
	return nil
}

func (r *fakeOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	return cloneOrder(o), nil
}

func (r *fakeOrderRepo) GetByCheckoutID(ctx context.Context, checkoutID uuid.UUID) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byCheckout[checkoutID]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "order", ID: checkoutID.String()}
	}
	return cloneOrder(r.byID[id]), nil
}

func (r *fakeOrderRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Order
	for _, o := range r.byID {
		if o.UserID == userID {
			out = append(out, cloneOrder(o))
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) ApplyCancellation(ctx context.Context, order *domain.Order) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[order.ID]
	if !ok {
		return false, nil
	}
	if o.Status == domain.OrderStatusCancel || o.PaymentStatus == domain.PaymentStatusCancelled {
		return false, nil
	}
	o.Status = order.Status
	o.PaymentStatus = order.PaymentStatus
	o.IsCancelled = order.IsCancelled
	o.CancelledAt = order.CancelledAt
	o.CancellationReason = order.CancellationReason
	o.CancelledBy = order.CancelledBy
	o.RefundStatus = order.RefundStatus
	o.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *fakeOrderRepo) UpdateRefund(ctx context.Context, order *domain.Order, from []domain.RefundStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[order.ID]
	if !ok {
		return false, nil
	}
	eligible := false
	for _, s := range from {
		if o.RefundStatus == s {
			eligible = true
			break
		}
	}
	if !eligible {
		return false, nil
	}
	o.RefundStatus = order.RefundStatus
	o.RefundDetails = order.RefundDetails
	o.PaymentStatus = order.PaymentStatus
	o.UpdatedAt = time.Now().UTC()
	return true, nil
}

// fakeGateway implements PaymentGateway with overridable behavior and call
// counting
type fakeGateway struct {
	mu                 sync.Mutex
	InitiateFunc       func(ctx context.Context, req gateway.InitiateRequest) (*gateway.InitiateResponse, error)
	ValidateFunc       func(ctx context.Context, valID string) (*gateway.ValidationResponse, error)
	InitiateRefundFunc func(ctx context.Context, bankTranID string, amount float64, remarks, refundRefID string) (*gateway.RefundResponse, error)
	InitiateCalls      int
	ValidateCalls      int
	RefundCalls        int
	LastInitiate       gateway.InitiateRequest
	LastValID          string
	LastRefundRefID    string
}

func (g *fakeGateway) Initiate(ctx context.Context, req gateway.InitiateRequest) (*gateway.InitiateResponse, error) {
	g.mu.Lock()
	g.InitiateCalls++
	g.LastInitiate = req
	fn := g.InitiateFunc
	g.mu.Unlock()
	if fn != nil {
		return fn(ctx, req)
	}
	return &gateway.InitiateResponse{
		Status:         "SUCCESS",
		SessionKey:     "sess-" + req.TransactionID,
		GatewayPageURL: "https://sandbox.sslcommerz.com/EasyCheckOut/test",
	}, nil
}

func (g *fakeGateway) Validate(ctx context.Context, valID string) (*gateway.ValidationResponse, error) {
	g.mu.Lock()
	g.ValidateCalls++
	g.LastValID = valID
	fn := g.ValidateFunc
	g.mu.Unlock()
	if fn != nil {
		return fn(ctx, valID)
	}
	return &gateway.ValidationResponse{
		Status:            "VALID",
		ValidationID:      valID,
		Amount:            "8500.00",
		Currency:          "BDT",
		BankTransactionID: "BANK-" + valID,
	}, nil
}

func (g *fakeGateway) InitiateRefund(ctx context.Context, bankTranID string, amount float64, remarks, refundRefID string) (*gateway.RefundResponse, error) {
	g.mu.Lock()
	g.RefundCalls++
	g.LastRefundRefID = refundRefID
	fn := g.InitiateRefundFunc
	g.mu.Unlock()
	if fn != nil {
		return fn(ctx, bankTranID, amount, remarks, refundRefID)
	}
	return &gateway.RefundResponse{
		APIConnect:  "DONE",
		Status:      "success",
		RefundRefID: refundRefID,
	}, nil
}

// recordingPublisher captures published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	Topic string
	Event interface{}
}

func (p *recordingPublisher) Publish(topic string, event interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Topic: topic, Event: event})
}

func (p *recordingPublisher) topicCount(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Topic == topic {
			n++
		}
	}
	return n
}

// recordingClearer counts cart clears
type recordingClearer struct {
	mu    sync.Mutex
	calls int
}

func (c *recordingClearer) Clear(ctx context.Context, userID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil
}

func (c *recordingClearer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func newTestRepos() *repository.Repositories {
	return &repository.Repositories{
		Checkout: newFakeCheckoutRepo(),
		Order:    newFakeOrderRepo(),
	}
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

// seedPaidCheckout stores a checkout that has completed payment but is not
// yet finalized
func seedPaidCheckout(repos *repository.Repositories, userID uuid.UUID) *domain.Checkout {
	now := time.Now().UTC()
	checkout := &domain.Checkout{
		ID:     uuid.New(),
		UserID: userID,
		Items: []domain.CheckoutItem{
			{ProductID: "p1", Name: "Panjabi", UnitPrice: 50, Quantity: 2},
		},
		ShippingAddress: domain.ShippingAddress{
			FirstName: "Rahim", LastName: "Uddin",
			Address: "12 Road", City: "Dhaka", PostalCode: "1207", Country: "BD",
		},
		CustomerInfo:  domain.CustomerInfo{Email: "rahim@example.com", Phone: "01711111111"},
		PaymentMethod: "SSLCommerz",
		TotalPrice:    100,
		ExchangeRate:  85,
		PaymentStatus: domain.PaymentStatusCompleted,
		PaymentDetails: domain.PaymentDetails{
			TransactionID: "TXN-SEED-1",
			Validation:    &domain.ValidationResult{BankTransactionID: "BANK-SEED"},
		},
		SSLTransactionID: "TXN-SEED-1",
		IsPaid:           true,
		PaidAt:           &now,
	}
	checkout.RecomputeBDTAmount()

	repo := repos.Checkout.(*fakeCheckoutRepo)
	_ = repo.Create(context.Background(), checkout)
	repo.mu.Lock()
	repo.byTran[checkout.SSLTransactionID] = checkout.ID
	repo.mu.Unlock()
	return checkout
}

// seedInitiatedCheckout stores a checkout with an open gateway session
func seedInitiatedCheckout(repos *repository.Repositories, userID uuid.UUID, tranID string) *domain.Checkout {
	now := time.Now().UTC()
	checkout := &domain.Checkout{
		ID:     uuid.New(),
		UserID: userID,
		Items: []domain.CheckoutItem{
			{ProductID: "p1", Name: "Saree", UnitPrice: 100, Quantity: 1},
		},
		ShippingAddress: domain.ShippingAddress{
			FirstName: "Karim", LastName: "Mia",
			Address: "34 Lane", City: "Chattogram", PostalCode: "4000", Country: "BD",
		},
		CustomerInfo:  domain.CustomerInfo{Email: "karim@example.com", Phone: "01822222222"},
		PaymentMethod: "SSLCommerz",
		TotalPrice:    100,
		ExchangeRate:  85,
		PaymentStatus: domain.PaymentStatusInitiated,
		PaymentDetails: domain.PaymentDetails{
			TransactionID: tranID,
			InitiatedAt:   &now,
		},
		SSLTransactionID: tranID,
	}
	checkout.RecomputeBDTAmount()

	repo := repos.Checkout.(*fakeCheckoutRepo)
	_ = repo.Create(context.Background(), checkout)
	repo.mu.Lock()
	repo.byTran[tranID] = checkout.ID
	repo.mu.Unlock()
	return checkout
}
