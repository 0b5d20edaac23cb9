package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"frontdesk/internal/domain"
)

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
func valInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

type scanner interface {
	Scan(dest ...any) error
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// ---- reads ----

func scanRoom(s scanner) (domain.Room, error) {
	var r domain.Room
	err := s.Scan(&r.ID, &r.HotelID, &r.RoomTypeID, &r.Name, &r.OperationalStatus)
	return r, err
}

func scanBooking(s scanner) (domain.Booking, error) {
	var (
		b        domain.Booking
		original sql.NullInt64
		status   string
		payStat  sql.NullString
		payType  sql.NullString
		note     sql.NullString
	)
	if err := s.Scan(
		&b.ID,
		&b.RoomID,
		&b.RoomRateID,
		&original,
		&b.StartDatetime,
		&b.EndDatetime,
		&b.ExtraPerson,
		&b.TotalPrice,
		&status,
		&payStat,
		&payType,
		&note,
	); err != nil {
		return domain.Booking{}, err
	}
	if original.Valid {
		id := original.Int64
		b.OriginalBookingID = &id
	}
	b.Status = domain.BookingStatus(status)
	b.PaymentStatus = payStat.String
	b.PaymentType = payType.String
	b.Note = note.String
	return b, nil
}

func scanRoomRate(s scanner) (domain.RoomRate, error) {
	var rr domain.RoomRate
	err := s.Scan(&rr.ID, &rr.RoomTypeID, &rr.Name, &rr.RateType, &rr.DurationMinutes,
		&rr.BasePrice, &rr.ExtraPersonRate, &rr.OverstayRate)
	return rr, err
}

func (r *Repo) queryRooms(ctx context.Context, q string, arg int64) ([]domain.Room, error) {
	rows, err := r.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Room{}
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		room.Bookings = []domain.Booking{}
		out = append(out, room)
	}
	return out, rows.Err()
}

// embedLive attaches live bookings to their rooms.
func (r *Repo) embedLive(ctx context.Context, rooms []domain.Room, q string, arg int64) error {
	rows, err := r.db.QueryContext(ctx, q, arg)
	if err != nil {
		return err
	}
	defer rows.Close()

	idx := make(map[int64]int, len(rooms))
	for i := range rooms {
		idx[rooms[i].ID] = i
	}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return err
		}
		if i, ok := idx[b.RoomID]; ok {
			b.Addons, b.Charges, b.Orders = []domain.BookingAddon{}, []domain.BookingCharge{}, []domain.OrderItem{}
			rooms[i].Bookings = append(rooms[i].Bookings, b)
		}
	}
	return rows.Err()
}

func (r *Repo) ListRooms(ctx context.Context, hotelID int64) ([]domain.Room, error) {
	rooms, err := r.queryRooms(ctx, listRoomsSQL, hotelID)
	if err != nil {
		return nil, err
	}
	if err := r.embedLive(ctx, rooms, listLiveBookingsByHotelSQL, hotelID); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *Repo) ListRoomsByType(ctx context.Context, roomTypeID int64) ([]domain.Room, error) {
	rooms, err := r.queryRooms(ctx, listRoomsByTypeSQL, roomTypeID)
	if err != nil {
		return nil, err
	}
	if err := r.embedLive(ctx, rooms, listLiveBookingsByRoomTypeSQL, roomTypeID); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *Repo) GetRoom(ctx context.Context, id int64) (domain.Room, error) {
	room, err := scanRoom(r.db.QueryRowContext(ctx, getRoomSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Room{}, domain.ErrNotFound
	}
	return room, err
}

func (r *Repo) ListRoomTypes(ctx context.Context, hotelID int64) ([]domain.RoomType, error) {
	rows, err := r.db.QueryContext(ctx, listRoomTypesSQL, hotelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.RoomType{}
	for rows.Next() {
		var rt domain.RoomType
		if err := rows.Scan(&rt.ID, &rt.HotelID, &rt.Name); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

func (r *Repo) ListRoomRates(ctx context.Context, roomTypeID int64) ([]domain.RoomRate, error) {
	rows, err := r.db.QueryContext(ctx, listRoomRatesSQL, roomTypeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.RoomRate{}
	for rows.Next() {
		rr, err := scanRoomRate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}

func (r *Repo) GetRoomRate(ctx context.Context, id int64) (domain.RoomRate, error) {
	rr, err := scanRoomRate(r.db.QueryRowContext(ctx, getRoomRateSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RoomRate{}, domain.ErrNotFound
	}
	return rr, err
}

func (r *Repo) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	var p domain.Product
	err := r.db.QueryRowContext(ctx, getProductSQL, id).Scan(&p.ID, &p.Name, &p.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, domain.ErrNotFound
	}
	return p, err
}

func (r *Repo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	var u domain.User
	err := r.db.QueryRowContext(ctx, getUserByUsernameSQL, username).
		Scan(&u.ID, &u.HotelID, &u.Username, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	return u, err
}

// GetBooking returns the booking with its add-ons, orders and charges.
func (r *Repo) GetBooking(ctx context.Context, id int64) (domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, getBookingSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Booking{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Booking{}, err
	}
	if b.Addons, err = r.listAddons(ctx, id); err != nil {
		return domain.Booking{}, err
	}
	if b.Orders, err = r.listOrderItems(ctx, id); err != nil {
		return domain.Booking{}, err
	}
	if b.Charges, err = r.listCharges(ctx, id); err != nil {
		return domain.Booking{}, err
	}
	return b, nil
}

func (r *Repo) GetAddon(ctx context.Context, id int64) (domain.BookingAddon, error) {
	var a domain.BookingAddon
	err := r.db.QueryRowContext(ctx, getAddonSQL, id).
		Scan(&a.ID, &a.BookingID, &a.ProductID, &a.Quantity, &a.Price, &a.TotalPrice)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.BookingAddon{}, domain.ErrNotFound
	}
	return a, err
}

func (r *Repo) GetOrderItem(ctx context.Context, id int64) (domain.OrderItem, error) {
	var o domain.OrderItem
	err := r.db.QueryRowContext(ctx, getOrderItemSQL, id).
		Scan(&o.ID, &o.BookingID, &o.ProductID, &o.Quantity, &o.Price, &o.TotalPrice)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.OrderItem{}, domain.ErrNotFound
	}
	return o, err
}

func (r *Repo) listAddons(ctx context.Context, bookingID int64) ([]domain.BookingAddon, error) {
	rows, err := r.db.QueryContext(ctx, listAddonsSQL, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.BookingAddon{}
	for rows.Next() {
		var a domain.BookingAddon
		if err := rows.Scan(&a.ID, &a.BookingID, &a.ProductID, &a.Quantity, &a.Price, &a.TotalPrice); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repo) listOrderItems(ctx context.Context, bookingID int64) ([]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, listOrderItemsSQL, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.OrderItem{}
	for rows.Next() {
		var o domain.OrderItem
		if err := rows.Scan(&o.ID, &o.BookingID, &o.ProductID, &o.Quantity, &o.Price, &o.TotalPrice); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Repo) listCharges(ctx context.Context, bookingID int64) ([]domain.BookingCharge, error) {
	rows, err := r.db.QueryContext(ctx, listChargesSQL, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.BookingCharge{}
	for rows.Next() {
		var c domain.BookingCharge
		if err := rows.Scan(&c.ID, &c.BookingID, &c.Name, &c.Price, &c.RoomID); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ---- writes ----

// withTx runs fn in a transaction and rolls back on any error.
func (r *Repo) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// lockVacant locks the room row and fails with *ConflictError if it holds a live booking.
func lockVacant(ctx context.Context, tx *sql.Tx, roomID int64) error {
	var id int64
	if err := tx.QueryRowContext(ctx, lockRoomSQL, roomID).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("room %d: %w", roomID, domain.ErrNotFound)
		}
		return err
	}
	var live int
	if err := tx.QueryRowContext(ctx, countLiveBookingsSQL, roomID).Scan(&live); err != nil {
		return err
	}
	if live > 0 {
		return &domain.ConflictError{RoomID: roomID, Reason: "room already occupied"}
	}
	return nil
}

func insertBooking(ctx context.Context, tx *sql.Tx, b domain.Booking) (int64, error) {
	res, err := tx.ExecContext(ctx, insertBookingSQL,
		b.RoomID,
		b.RoomRateID,
		valInt64(b.OriginalBookingID),
		b.StartDatetime.UTC(),
		b.EndDatetime.UTC(),
		b.ExtraPerson,
		b.TotalPrice,
		string(b.Status),
		valStr(b.PaymentStatus),
		valStr(b.PaymentType),
		valStr(b.Note),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func finalize(ctx context.Context, ex interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, b domain.Booking) error {
	res, err := ex.ExecContext(ctx, finalizeBookingSQL,
		string(b.Status),
		b.RoomRateID,
		b.ExtraPerson,
		b.TotalPrice,
		valStr(b.PaymentStatus),
		valStr(b.PaymentType),
		valStr(b.Note),
		b.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrFinalized
	}
	return nil
}

func (r *Repo) CreateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if err := lockVacant(ctx, tx, b.RoomID); err != nil {
			return err
		}
		id, err := insertBooking(ctx, tx, b)
		if err != nil {
			return err
		}
		b.ID = id
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return r.GetBooking(ctx, b.ID)
}

func (r *Repo) FinalizeBooking(ctx context.Context, b domain.Booking) error {
	return finalize(ctx, r.db, b)
}

// TransferBooking supersedes from with a new live booking on to.RoomID, copying
// add-ons, orders and persisted charges, then attaching to.Charges.
func (r *Repo) TransferBooking(ctx context.Context, from domain.Booking, to domain.Booking) (domain.Booking, error) {
	var newID int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		// lock both rooms in id order so concurrent transfers cannot deadlock
		ids := []int64{from.RoomID, to.RoomID}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			if id == to.RoomID {
				if err := lockVacant(ctx, tx, id); err != nil {
					return err
				}
				continue
			}
			var locked int64
			if err := tx.QueryRowContext(ctx, lockRoomSQL, id).Scan(&locked); err != nil {
				return err
			}
		}

		if err := finalize(ctx, tx, from); err != nil {
			return err
		}

		orig := from.ID
		to.OriginalBookingID = &orig
		id, err := insertBooking(ctx, tx, to)
		if err != nil {
			return err
		}
		newID = id

		for _, q := range []string{copyAddonsSQL, copyOrderItemsSQL, copyChargesSQL} {
			if _, err := tx.ExecContext(ctx, q, newID, from.ID); err != nil {
				return err
			}
		}
		for _, c := range to.Charges {
			if _, err := tx.ExecContext(ctx, insertChargeSQL, newID, c.Name, c.Price, c.RoomID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return r.GetBooking(ctx, newID)
}

func (r *Repo) AddAddon(ctx context.Context, a domain.BookingAddon) (domain.BookingAddon, error) {
	res, err := r.db.ExecContext(ctx, insertAddonSQL, a.BookingID, a.ProductID, a.Quantity, a.Price, a.TotalPrice)
	if err != nil {
		return domain.BookingAddon{}, err
	}
	if a.ID, err = res.LastInsertId(); err != nil {
		return domain.BookingAddon{}, err
	}
	return a, nil
}

func (r *Repo) DeleteAddon(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, deleteAddonSQL, id)
}

func (r *Repo) AddOrderItem(ctx context.Context, o domain.OrderItem) (domain.OrderItem, error) {
	res, err := r.db.ExecContext(ctx, insertOrderItemSQL, o.BookingID, o.ProductID, o.Quantity, o.Price, o.TotalPrice)
	if err != nil {
		return domain.OrderItem{}, err
	}
	if o.ID, err = res.LastInsertId(); err != nil {
		return domain.OrderItem{}, err
	}
	return o, nil
}

func (r *Repo) DeleteOrderItem(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, deleteOrderItemSQL, id)
}

func (r *Repo) AddCharge(ctx context.Context, c domain.BookingCharge) (domain.BookingCharge, error) {
	res, err := r.db.ExecContext(ctx, insertChargeSQL, c.BookingID, c.Name, c.Price, c.RoomID)
	if err != nil {
		return domain.BookingCharge{}, err
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return domain.BookingCharge{}, err
	}
	return c, nil
}

func (r *Repo) deleteByID(ctx context.Context, q string, id int64) error {
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
