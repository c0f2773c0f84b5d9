package services

import (
	"sync"
	"time"

	"github.com/tracecmd/backend/internal/domain"
)

// Task event types published on the hub
const (
	TaskEventNotification      = "notification"
	TaskEventProgressShown     = "progress_shown"
	TaskEventProgressDismissed = "progress_dismissed"
	TaskEventMessage           = "message"
	TaskEventError             = "error"
	TaskEventStatus            = "status"
)

type TaskEvent struct {
	TaskID       string               `json:"task_id"`
	Type         string               `json:"type"`
	Status       domain.TaskStatus    `json:"status,omitempty"`
	Title        string               `json:"title,omitempty"`
	Message      string               `json:"message,omitempty"`
	Code         *domain.ErrorCode    `json:"code,omitempty"`
	Notification *domain.Notification `json:"notification,omitempty"`
	At           time.Time            `json:"at"`
}

// EventHub fans task events out to live subscribers. Slow subscribers drop
// events instead of blocking the publisher.
type EventHub struct {
	mu     sync.RWMutex
	subs   map[int]chan TaskEvent
	nextID int
	buffer int
}

func NewEventHub(buffer int) *EventHub {
	if buffer <= 0 {
		buffer = 64
	}
	return &EventHub{
		subs:   make(map[int]chan TaskEvent),
		buffer: buffer,
	}
}

// Subscribe registers a subscriber; call the returned func to unsubscribe
func (h *EventHub) Subscribe() (<-chan TaskEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan TaskEvent, h.buffer)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
}

func (h *EventHub) Publish(evt TaskEvent) {
	if evt.At.IsZero() {
		evt.At = time.Now()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

func (h *EventHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Notify makes the hub usable as a task listener
func (h *EventHub) Notify(n domain.Notification) {
	h.Publish(TaskEvent{TaskID: n.Source, Type: TaskEventNotification, Notification: &n})
}

type hubProgress struct {
	hub    *EventHub
	taskID string
}

func (p *hubProgress) Show(title string) {
	p.hub.Publish(TaskEvent{TaskID: p.taskID, Type: TaskEventProgressShown, Title: title})
}

func (p *hubProgress) Dismiss() {
	p.hub.Publish(TaskEvent{TaskID: p.taskID, Type: TaskEventProgressDismissed})
}

type hubDisplay struct {
	hub    *EventHub
	taskID string
}

func (d *hubDisplay) ShowMessage(msg string) {
	d.hub.Publish(TaskEvent{TaskID: d.taskID, Type: TaskEventMessage, Message: msg})
}

func (d *hubDisplay) ShowError(code *domain.ErrorCode, msg string) {
	d.hub.Publish(TaskEvent{TaskID: d.taskID, Type: TaskEventError, Title: code.Title, Message: msg, Code: code})
}
