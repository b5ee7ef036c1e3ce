package notify

import (
	"fmt"
	"sync"
)

// Recorder records all notifications, it is used in tests.
type Recorder struct {
	lock     sync.Mutex
	events   []string
	messages []Message
	errors   []string
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) ShowMessage(msg Message) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.messages = append(r.messages, msg)
	r.events = append(r.events, fmt.Sprintf("message:%s:%s", msg.Type, msg.Text))
}

func (r *Recorder) ShowError(text string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.errors = append(r.errors, text)
	r.events = append(r.events, "error:"+text)
}

func (r *Recorder) CloseAll() {
	r.record("closeAll")
}

func (r *Recorder) Open() {
	r.record("loader:open")
}

func (r *Recorder) Close() {
	r.record("loader:close")
}

// Events returns all recorded calls in order, for example "closeAll", "error:<text>".
func (r *Recorder) Events() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]string(nil), r.events...)
}

// Messages returns messages shown by ShowMessage.
func (r *Recorder) Messages() []Message {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]Message(nil), r.messages...)
}

// Errors returns messages shown by ShowError.
func (r *Recorder) Errors() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]string(nil), r.errors...)
}

// Reset clears all records.
func (r *Recorder) Reset() {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.events = nil
	r.messages = nil
	r.errors = nil
}

func (r *Recorder) record(event string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.events = append(r.events, event)
}
