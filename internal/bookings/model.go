package bookings

import "strings"

// Booking is the subset of a booking row the feedback page needs.
type Booking struct {
	ID            string `json:"id"`
	BookingNumber string `json:"booking_number"`
	CustomerID    string `json:"customer_id"`
	ServiceType   string `json:"service_type"`
	Status        string `json:"status"`
}

// Customer is the contact attached to a booking.
type Customer struct {
	ID        string `json:"id"`
	BookingID string `json:"booking_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// FullName joins first and last name.
func (c *Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Contact is what pre-fills the feedback form.
type Contact struct {
	BookingNumber string `json:"booking_number"`
	Name          string `json:"name"`
	Email         string `json:"email"`
}
