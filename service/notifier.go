package service

import (
	"fmt"
	"log"
	"sync"

	"bharote-backend/models"
)

// Notification is one outbound message to a voter or administrator.
type Notification struct {
	Kind      string
	Recipient string
	Subject   string
	Body      string
}

// Sender delivers a single notification. Implementations may talk to an email
// or SMS provider; delivery failure is logged and dropped, never propagated.
type Sender interface {
	Send(n Notification) error
}

// LogSender writes notifications to the process log. It stands in for the
// external email/SMS dispatch subsystem.
type LogSender struct{}

func (LogSender) Send(n Notification) error {
	log.Printf("notify [%s] to %s: %s", n.Kind, n.Recipient, n.Subject)
	return nil
}

// Dispatcher delivers notifications asynchronously through a buffered channel
// and a single worker, so a slow or failing sender never blocks the commit
// path. When the queue is full the notification is dropped with a log line;
// vote commits must not wait on delivery.
type Dispatcher struct {
	sender     Sender
	ch         chan Notification
	shutdownCh chan struct{}
	wg         sync.WaitGroup
}

func NewDispatcher(sender Sender, queueSize int) *Dispatcher {
	if queueSize < 1 {
		queueSize = 64
	}
	return &Dispatcher{
		sender:     sender,
		ch:         make(chan Notification, queueSize),
		shutdownCh: make(chan struct{}),
	}
}

// Start launches the delivery worker.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.worker()
}

// Stop drains nothing: pending notifications are best-effort and may be lost
// on shutdown.
func (d *Dispatcher) Stop() {
	close(d.shutdownCh)
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.shutdownCh:
			return
		case n := <-d.ch:
			if err := d.sender.Send(n); err != nil {
				log.Printf("Warning: failed to deliver %s notification to %s: %v", n.Kind, n.Recipient, err)
			}
		}
	}
}

// enqueue adds a notification without blocking.
func (d *Dispatcher) enqueue(n Notification) {
	select {
	case d.ch <- n:
	default:
		log.Printf("Warning: notification queue is full, %s to %s dropped", n.Kind, n.Recipient)
	}
}

func contactOf(voter *models.Voter) string {
	if voter.Email != nil && *voter.Email != "" {
		return *voter.Email
	}
	if voter.PhoneNumber != nil && *voter.PhoneNumber != "" {
		return *voter.PhoneNumber
	}
	return voter.VoterID
}

// OTPCode dispatches a verification code to the voter's contact identifier.
func (d *Dispatcher) OTPCode(voter *models.Voter, code string) {
	d.enqueue(Notification{
		Kind:      "otp",
		Recipient: contactOf(voter),
		Subject:   "Your verification code",
		Body:      fmt.Sprintf("Hello %s, your verification code is %s.", voter.FullName, code),
	})
}

// VoteConfirmation dispatches a post-commit receipt. This runs after the
// transaction has committed; its failure cannot roll the block back.
func (d *Dispatcher) VoteConfirmation(voter *models.Voter, block *models.Block) {
	d.enqueue(Notification{
		Kind:      "vote_confirmation",
		Recipient: contactOf(voter),
		Subject:   fmt.Sprintf("Vote recorded in block #%d", block.BlockNumber),
		Body:      fmt.Sprintf("Your vote was recorded at %s. Receipt hash: %s", block.Timestamp, block.VoteHash),
	})
}

// AdminRegistrationAlert tells the administrator about a new registration.
func (d *Dispatcher) AdminRegistrationAlert(voter *models.Voter) {
	d.enqueue(Notification{
		Kind:      "admin_registration",
		Recipient: "admin",
		Subject:   "New voter registration",
		Body:      fmt.Sprintf("Voter %s registered in %s.", voter.VoterID, voter.Constituency),
	})
}
