package mail

import (
	"errors"
	"fmt"

	"bytron/internal/models"

	"gopkg.in/gomail.v2"
)

// Sender dispatches order receipts over SMTP. Sends are best effort; callers
// log failures and move on.
type Sender struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

func (s *Sender) Configured() bool {
	return s.Host != "" && s.From != ""
}

func (s *Sender) SendReceipt(order *models.Order, to string) error {
	if !s.Configured() {
		return errors.New("smtp is not configured")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", fmt.Sprintf("Your order %s is confirmed", order.OrderID))
	m.SetBody("text/plain", receiptBody(order))

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.SSL = s.Port == 465
	return d.DialAndSend(m)
}

func receiptBody(order *models.Order) string {
	body := fmt.Sprintf(
		"Payment received for order %s (%s).\nAmount: %d sun\nTransaction: %s\n",
		order.OrderID, order.ProductID, order.PaidSun, order.PaidTxID,
	)
	if order.ExpiresAt != nil {
		body += fmt.Sprintf("Your download link is valid until %s.\n", order.ExpiresAt.UTC().Format("2006-01-02 15:04 UTC"))
	}
	return body
}
