package memory

import (
	"sync"

	"pet-aftercare-be/internal/entity"

	"github.com/google/uuid"
)

// Store is the shared in-memory state behind the fake repositories. It
// mirrors the database guarantees the services lean on, most importantly
// the one-active-refund-per-booking unique index.
type Store struct {
	mu sync.Mutex

	Bookings      map[uuid.UUID]*entity.Booking
	Payments      map[uuid.UUID]*entity.PaymentTransaction
	Refunds       map[uuid.UUID]*entity.RefundTransaction
	GatewayEvents []*entity.GatewayEvent
}

func NewStore() *Store {
	return &Store{
		Bookings: make(map[uuid.UUID]*entity.Booking),
		Payments: make(map[uuid.UUID]*entity.PaymentTransaction),
		Refunds:  make(map[uuid.UUID]*entity.RefundTransaction),
	}
}

func (s *Store) AddBooking(b *entity.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *b
	s.Bookings[b.Id] = &cp
}

func (s *Store) AddPayment(p *entity.PaymentTransaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.Payments[p.Id] = &cp
}

func (s *Store) AddRefund(r *entity.RefundTransaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.Refunds[r.Id] = &cp
}

func (s *Store) Booking(id uuid.UUID) *entity.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.Bookings[id]; ok {
		cp := *b
		return &cp
	}
	return nil
}

func (s *Store) Payment(id uuid.UUID) *entity.PaymentTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.Payments[id]; ok {
		cp := *p
		return &cp
	}
	return nil
}

func (s *Store) Refund(id uuid.UUID) *entity.RefundTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.Refunds[id]; ok {
		cp := *r
		return &cp
	}
	return nil
}
