package domain

// Waiter is the staff member who took an order. Accounts are owned by the
// admin backend; the sync layer only carries them as references.
type Waiter struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Active   bool   `json:"active"`
	Admin    bool   `json:"admin"`
	Shift    string `json:"shift,omitempty"`
}
