package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	domainbooking "kodesha/internal/domain/booking"
	domainescrow "kodesha/internal/domain/escrow"
	domainwallet "kodesha/internal/domain/wallet"
)

// ErrConcurrentUpdate is returned when a Save carries a stale version. The
// losing caller should reload and re-validate the transition.
var ErrConcurrentUpdate = errors.New("memory: concurrent update detected")

// BookingRepository stores bookings in memory with snapshot isolation per
// record: callers always get copies, and Save does a version compare-and-swap
// so racing transitions on the same booking lose cleanly.
type BookingRepository struct {
	mu    sync.RWMutex
	items map[domainbooking.BookingID]*domainbooking.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{items: make(map[domainbooking.BookingID]*domainbooking.Booking)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.items[id]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	return cloneBooking(b), nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.items[b.ID]; ok && current.Version != b.Version {
		return ErrConcurrentUpdate
	}
	b.Version++
	r.items[b.ID] = cloneBooking(b)
	return nil
}

func (r *BookingRepository) List(ctx context.Context, filter domainbooking.ListFilter) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*domainbooking.Booking, 0, len(r.items))
	for _, b := range r.items {
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.RenterID != "" && b.RenterID != filter.RenterID {
			continue
		}
		if filter.OwnerID != "" && b.OwnerID != filter.OwnerID {
			continue
		}
		matches = append(matches, cloneBooking(b))
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches, nil
}

func (r *BookingRepository) checkVersion(b *domainbooking.Booking) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if current, ok := r.items[b.ID]; ok && current.Version != b.Version {
		return ErrConcurrentUpdate
	}
	return nil
}

func cloneBooking(b *domainbooking.Booking) *domainbooking.Booking {
	clone := *b
	clone.ClearEvents()
	return &clone
}

// EscrowRepository keeps escrow records keyed by booking id.
type EscrowRepository struct {
	mu    sync.RWMutex
	items map[domainbooking.BookingID]*domainescrow.Record
}

func NewEscrowRepository() *EscrowRepository {
	return &EscrowRepository{items: make(map[domainbooking.BookingID]*domainescrow.Record)}
}

func (r *EscrowRepository) ByBookingID(ctx context.Context, id domainbooking.BookingID) (*domainescrow.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.items[id]
	if !ok {
		return nil, domainescrow.ErrRecordNotFound
	}
	clone := *rec
	return &clone, nil
}

func (r *EscrowRepository) Save(ctx context.Context, rec *domainescrow.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.items[rec.BookingID]; ok && current.Version != rec.Version {
		return ErrConcurrentUpdate
	}
	rec.Version++
	clone := *rec
	r.items[rec.BookingID] = &clone
	return nil
}

func (r *EscrowRepository) checkVersion(rec *domainescrow.Record) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if current, ok := r.items[rec.BookingID]; ok && current.Version != rec.Version {
		return ErrConcurrentUpdate
	}
	return nil
}

// WalletRepository keeps wallets keyed by user id.
type WalletRepository struct {
	mu    sync.RWMutex
	items map[string]*domainwallet.Wallet
}

func NewWalletRepository() *WalletRepository {
	return &WalletRepository{items: make(map[string]*domainwallet.Wallet)}
}

func (r *WalletRepository) ByUserID(ctx context.Context, userID string) (*domainwallet.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id := strings.TrimSpace(userID)
	w, ok := r.items[id]
	if !ok {
		return nil, domainwallet.ErrWalletNotFound
	}
	return cloneWallet(w), nil
}

func (r *WalletRepository) Save(ctx context.Context, w *domainwallet.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.items[w.UserID]; ok && current.Version != w.Version {
		return ErrConcurrentUpdate
	}
	w.Version++
	r.items[w.UserID] = cloneWallet(w)
	return nil
}

func (r *WalletRepository) checkVersion(w *domainwallet.Wallet) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if current, ok := r.items[w.UserID]; ok && current.Version != w.Version {
		return ErrConcurrentUpdate
	}
	return nil
}

func cloneWallet(w *domainwallet.Wallet) *domainwallet.Wallet {
	clone := *w
	clone.Entries = append([]domainwallet.Entry(nil), w.Entries...)
	return &clone
}
