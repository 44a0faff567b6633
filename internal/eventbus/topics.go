package eventbus

type Topic string

const (
	PatternCreated      Topic = "pattern.created"
	PatternUpdated      Topic = "pattern.updated"
	PatternPaused       Topic = "pattern.paused"
	PatternResumed      Topic = "pattern.resumed"
	PatternDeleted      Topic = "pattern.deleted"
	PatternMaterialized Topic = "pattern.materialized"

	ReminderCreated   Topic = "reminder.created"
	ReminderSnoozed   Topic = "reminder.snoozed"
	ReminderCancelled Topic = "reminder.cancelled"
	ReminderTriggered Topic = "reminder.triggered"
	ReminderPurged    Topic = "reminder.purged"

	// NotificationFallback carries a Notice when the native channel could not
	// show a reminder.
	NotificationFallback Topic = "notification.fallback"
	NotificationShown    Topic = "notification.shown"

	TaskGenerated Topic = "task.generated"
	TaskCompleted Topic = "task.completed"
)

// Notice is the payload of notification topics.
type Notice struct {
	ReminderID string
	SubjectID  string
	Title      string
	Body       string
	Reason     string
}
