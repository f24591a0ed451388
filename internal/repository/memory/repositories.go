package memory

import (
	"context"
	"sort"

	"pet-aftercare-be/internal/entity"
	"pet-aftercare-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// The fakes interpret the same specification values the gorm repositories
// translate to SQL, by type-switching on the concrete spec structs. Specs a
// test never uses are simply not matched here.

type specFilter struct {
	id          *uuid.UUID
	bookingId   *uuid.UUID
	activeOnly  bool
	retryable   bool
	succeeded   bool
	statusEq    string
	orderByDesc bool
	limit       int
	offset      int
}

func parseSpecs(specs []specification.Specification) specFilter {
	f := specFilter{limit: -1}
	for _, s := range specs {
		switch v := s.(type) {
		case specification.ByID:
			id := v.ID
			f.id = &id
		case specification.ByBooking:
			id := v.BookingID
			f.bookingId = &id
		case specification.ActiveRefund:
			f.activeOnly = true
		case specification.RetryableRefunds:
			f.retryable = true
		case specification.SucceededPayments:
			f.succeeded = true
		case specification.FilterBy:
			if v.Field == "status" {
				if str, ok := v.Value.(string); ok {
					f.statusEq = str
				}
			}
		case specification.OrderBy:
			f.orderByDesc = v.Desc
		case specification.Pagination:
			f.limit = v.Limit
			f.offset = v.Offset
		}
	}
	return f
}

func (f specFilter) page(n int) (int, int) {
	start := f.offset
	if start > n {
		start = n
	}
	end := n
	if f.limit >= 0 && start+f.limit < n {
		end = start + f.limit
	}
	return start, end
}

// --- Booking ---

type BookingRepository struct {
	store *Store
}

func NewBookingRepository(store *Store) *BookingRepository {
	return &BookingRepository{store: store}
}

func (r *BookingRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Booking, error) {
	f := parseSpecs(specs)
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, b := range r.store.Bookings {
		if f.id != nil && b.Id != *f.id {
			continue
		}
		cp := *b
		return &cp, nil
	}
	return nil, nil
}

func (r *BookingRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Booking, error) {
	f := parseSpecs(specs)
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.Booking
	for _, b := range r.store.Bookings {
		if f.id != nil && b.Id != *f.id {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	return out, nil
}

func (r *BookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *booking
	r.store.Bookings[booking.Id] = &cp
	return nil
}

func (r *BookingRepository) UpdatePaymentStatus(ctx context.Context, booking *entity.Booking) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if b, ok := r.store.Bookings[booking.Id]; ok {
		b.PaymentStatus = booking.PaymentStatus
	}
	return nil
}

// --- Payment ---

type PaymentRepository struct {
	store *Store
}

func NewPaymentRepository(store *Store) *PaymentRepository {
	return &PaymentRepository{store: store}
}

func (r *PaymentRepository) matches(p *entity.PaymentTransaction, f specFilter) bool {
	if f.id != nil && p.Id != *f.id {
		return false
	}
	if f.bookingId != nil && p.BookingId != *f.bookingId {
		return false
	}
	if f.succeeded && p.Status != entity.PaymentTxSucceeded {
		return false
	}
	return true
}

func (r *PaymentRepository) Create(ctx context.Context, tx *entity.PaymentTransaction) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *tx
	r.store.Payments[tx.Id] = &cp
	return nil
}

func (r *PaymentRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.PaymentTransaction, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (r *PaymentRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.PaymentTransaction, error) {
	f := parseSpecs(specs)
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.PaymentTransaction
	for _, p := range r.store.Payments {
		if r.matches(p, f) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *PaymentRepository) FindLatestByBooking(ctx context.Context, bookingId uuid.UUID) (*entity.PaymentTransaction, error) {
	all, err := r.FindAll(ctx, specification.ByBooking{BookingID: bookingId})
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[len(all)-1], nil
}

func (r *PaymentRepository) Update(ctx context.Context, tx *entity.PaymentTransaction) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *tx
	r.store.Payments[tx.Id] = &cp
	return nil
}

func (r *PaymentRepository) UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to entity.PaymentTxStatus, providerTxId *string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.Payments[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	if providerTxId != nil {
		p.ProviderTransactionId = providerTxId
	}
	return true, nil
}

// --- Refund ---

type RefundRepository struct {
	store *Store
}

func NewRefundRepository(store *Store) *RefundRepository {
	return &RefundRepository{store: store}
}

func (r *RefundRepository) matches(rf *entity.RefundTransaction, f specFilter) bool {
	if f.id != nil && rf.Id != *f.id {
		return false
	}
	if f.bookingId != nil && rf.BookingId != *f.bookingId {
		return false
	}
	if f.activeOnly && !rf.Status.IsActive() {
		return false
	}
	if f.retryable && !(rf.Status == entity.RefundStatusFailed && rf.Retryable && rf.PaymentMethod == entity.PaymentMethodGateway) {
		return false
	}
	if f.statusEq != "" && string(rf.Status) != f.statusEq {
		return false
	}
	return true
}

// Create enforces the partial unique index: a second active refund for the
// same booking fails with gorm.ErrDuplicatedKey, exactly like postgres.
func (r *RefundRepository) Create(ctx context.Context, refund *entity.RefundTransaction) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if refund.Status.IsActive() {
		for _, existing := range r.store.Refunds {
			if existing.BookingId == refund.BookingId && existing.Status.IsActive() {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	cp := *refund
	r.store.Refunds[refund.Id] = &cp
	return nil
}

func (r *RefundRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.RefundTransaction, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (r *RefundRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.RefundTransaction, error) {
	f := parseSpecs(specs)
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.RefundTransaction
	for _, rf := range r.store.Refunds {
		if r.matches(rf, f) {
			cp := *rf
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if f.orderByDesc {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	start, end := f.page(len(out))
	return out[start:end], nil
}

func (r *RefundRepository) FindAllWithBooking(ctx context.Context, specs ...specification.Specification) ([]*entity.RefundTransaction, error) {
	out, err := r.FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, rf := range out {
		if b, ok := r.store.Bookings[rf.BookingId]; ok {
			cp := *b
			rf.Booking = &cp
		}
	}
	return out, nil
}

func (r *RefundRepository) Update(ctx context.Context, refund *entity.RefundTransaction) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	stored, ok := r.store.Refunds[refund.Id]
	if !ok {
		return nil
	}
	stored.Status = refund.Status
	stored.GatewayRefundId = refund.GatewayRefundId
	stored.Notes = refund.Notes
	stored.FailureReason = refund.FailureReason
	stored.Retryable = refund.Retryable
	stored.RetryCount = refund.RetryCount
	stored.ProcessedAt = refund.ProcessedAt
	return nil
}

func (r *RefundRepository) ClaimForRetry(ctx context.Context, id uuid.UUID) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	rf, ok := r.store.Refunds[id]
	if !ok || rf.Status != entity.RefundStatusFailed || !rf.Retryable {
		return false, nil
	}
	rf.Status = entity.RefundStatusProcessing
	return true, nil
}

// --- Gateway events ---

type GatewayEventRepository struct {
	store *Store
}

func NewGatewayEventRepository(store *Store) *GatewayEventRepository {
	return &GatewayEventRepository{store: store}
}

func (r *GatewayEventRepository) Create(ctx context.Context, event *entity.GatewayEvent) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *event
	r.store.GatewayEvents = append(r.store.GatewayEvents, &cp)
	return nil
}
