package mysql

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const listRoomsSQL = `
SELECT id, hotel_id, room_type_id, name, operational_status
FROM rooms
WHERE hotel_id = ?
ORDER BY id
`

const listRoomsByTypeSQL = `
SELECT id, hotel_id, room_type_id, name, operational_status
FROM rooms
WHERE room_type_id = ?
ORDER BY id
`

const getRoomSQL = `
SELECT id, hotel_id, room_type_id, name, operational_status
FROM rooms
WHERE id = ?
`

const bookingColumns = `
  b.id,
  b.room_id,
  b.room_rate_id,
  b.original_booking_id,
  b.start_datetime,
  b.end_datetime,
  b.extra_person,
  b.total_price,
  b.status,
  b.payment_status,
  b.payment_type,
  b.note`

// Live bookings of a hotel, used to embed occupancy into the dashboard.
const listLiveBookingsByHotelSQL = `
SELECT` + bookingColumns + `
FROM bookings b
JOIN rooms r ON r.id = b.room_id
WHERE r.hotel_id = ? AND b.status = 'check_in'
`

const listLiveBookingsByRoomTypeSQL = `
SELECT` + bookingColumns + `
FROM bookings b
JOIN rooms r ON r.id = b.room_id
WHERE r.room_type_id = ? AND b.status = 'check_in'
`

const getBookingSQL = `
SELECT` + bookingColumns + `
FROM bookings b
WHERE b.id = ?
`

const listRoomTypesSQL = `
SELECT id, hotel_id, name FROM room_types WHERE hotel_id = ? ORDER BY name, id
`

const roomRateColumns = `
  id, room_type_id, name, rate_type, duration_minutes, base_price, extra_person_rate, overstay_rate`

const listRoomRatesSQL = `
SELECT` + roomRateColumns + `
FROM room_rates
WHERE room_type_id = ?
ORDER BY duration_minutes, id
`

const getRoomRateSQL = `
SELECT` + roomRateColumns + `
FROM room_rates
WHERE id = ?
`

const getProductSQL = `SELECT id, name, price FROM products WHERE id = ?`

const getUserByUsernameSQL = `
SELECT id, hotel_id, username, password_hash FROM users WHERE username = ?
`

const listAddonsSQL = `
SELECT id, booking_id, product_id, quantity, price, total_price
FROM booking_addons WHERE booking_id = ? ORDER BY id
`

const getAddonSQL = `
SELECT id, booking_id, product_id, quantity, price, total_price
FROM booking_addons WHERE id = ?
`

const getOrderItemSQL = `
SELECT id, booking_id, product_id, quantity, price, total_price
FROM order_items WHERE id = ?
`

const listOrderItemsSQL = `
SELECT id, booking_id, product_id, quantity, price, total_price
FROM order_items WHERE booking_id = ? ORDER BY id
`

const listChargesSQL = `
SELECT id, booking_id, name, price, room_id
FROM booking_charges WHERE booking_id = ? ORDER BY id
`

// -----------------------------------------------------------------------------
// WRITE QUERIES
// -----------------------------------------------------------------------------

// Row lock that serializes every occupancy change of one room.
const lockRoomSQL = `SELECT id FROM rooms WHERE id = ? FOR UPDATE`

const countLiveBookingsSQL = `
SELECT COUNT(*) FROM bookings WHERE room_id = ? AND status = 'check_in'
`

const insertBookingSQL = `
INSERT INTO bookings
  (room_id, room_rate_id, original_booking_id, start_datetime, end_datetime,
   extra_person, total_price, status, payment_status, payment_type, note)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// Only a live booking may be finalized; zero affected rows means it already was.
const finalizeBookingSQL = `
UPDATE bookings SET
  status         = ?,
  room_rate_id   = ?,
  extra_person   = ?,
  total_price    = ?,
  payment_status = ?,
  payment_type   = ?,
  note           = ?
WHERE id = ? AND status = 'check_in'
`

const copyAddonsSQL = `
INSERT INTO booking_addons (booking_id, product_id, quantity, price, total_price)
SELECT ?, product_id, quantity, price, total_price FROM booking_addons WHERE booking_id = ?
`

const copyOrderItemsSQL = `
INSERT INTO order_items (booking_id, product_id, quantity, price, total_price)
SELECT ?, product_id, quantity, price, total_price FROM order_items WHERE booking_id = ?
`

const copyChargesSQL = `
INSERT INTO booking_charges (booking_id, name, price, room_id)
SELECT ?, name, price, room_id FROM booking_charges WHERE booking_id = ?
`

const insertAddonSQL = `
INSERT INTO booking_addons (booking_id, product_id, quantity, price, total_price)
VALUES (?, ?, ?, ?, ?)
`

const insertOrderItemSQL = `
INSERT INTO order_items (booking_id, product_id, quantity, price, total_price)
VALUES (?, ?, ?, ?, ?)
`

const insertChargeSQL = `
INSERT INTO booking_charges (booking_id, name, price, room_id)
VALUES (?, ?, ?, ?)
`

// Line items of finalized bookings are history and never deleted.
const deleteAddonSQL = `
DELETE a FROM booking_addons a
JOIN bookings b ON b.id = a.booking_id
WHERE a.id = ? AND b.status = 'check_in'
`

const deleteOrderItemSQL = `
DELETE o FROM order_items o
JOIN bookings b ON b.id = o.booking_id
WHERE o.id = ? AND b.status = 'check_in'
`
