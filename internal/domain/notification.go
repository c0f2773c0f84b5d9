package domain

// NotificationKind tags the payload carried by a Notification
type NotificationKind string

const (
	NotificationPropertyChange NotificationKind = "property_change"
	NotificationAction         NotificationKind = "action"
)

// Notification is delivered to listeners when a task starts. Exactly one of
// the property-change or action fields is meaningful, selected by Kind.
type Notification struct {
	Kind   NotificationKind `json:"kind"`
	Source string           `json:"source"`

	Property string `json:"property,omitempty"`
	OldValue any    `json:"old_value,omitempty"`
	NewValue any    `json:"new_value,omitempty"`

	ActionID int    `json:"action_id,omitempty"`
	Command  string `json:"command,omitempty"`
}

// PropertyChange builds a property-change notification
func PropertyChange(source, property string, oldValue, newValue any) Notification {
	return Notification{
		Kind:     NotificationPropertyChange,
		Source:   source,
		Property: property,
		OldValue: oldValue,
		NewValue: newValue,
	}
}

// ActionPerformed builds an action notification
func ActionPerformed(source string, id int, command string) Notification {
	return Notification{
		Kind:     NotificationAction,
		Source:   source,
		ActionID: id,
		Command:  command,
	}
}
