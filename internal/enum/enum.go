package enum

import "sort"

// ── Group A: Order status vocabulary (free text in DB) ──

const (
	OrderStatusPending   = "pending"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusCompleted = "completed"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
	OrderStatusArchived  = "archived"
)

// StatusBucket is the reporting class an order status falls into during archiving.
type StatusBucket string

const (
	BucketNone      StatusBucket = ""
	BucketCompleted StatusBucket = "completed"
	BucketDelivered StatusBucket = "delivered"
	BucketCancelled StatusBucket = "cancelled"
	BucketPending   StatusBucket = "pending"
	BucketPreparing StatusBucket = "preparing"
)

// Buckets lists every reporting bucket in response order.
var Buckets = []StatusBucket{
	BucketCompleted,
	BucketDelivered,
	BucketCancelled,
	BucketPending,
	BucketPreparing,
}

// statusBuckets maps every status string the order screens write (English and
// Spanish labels) to its bucket. Lookups are exact; "archived" is not mapped.
var statusBuckets = map[string]StatusBucket{
	"completed":      BucketCompleted,
	"completado":     BucketCompleted,
	"completada":     BucketCompleted,
	"delivered":      BucketDelivered,
	"entregado":      BucketDelivered,
	"entregada":      BucketDelivered,
	"cancelled":      BucketCancelled,
	"canceled":       BucketCancelled,
	"cancelado":      BucketCancelled,
	"cancelada":      BucketCancelled,
	"pending":        BucketPending,
	"pendiente":      BucketPending,
	"preparing":      BucketPreparing,
	"preparando":     BucketPreparing,
	"en_preparacion": BucketPreparing,
}

// BucketOf returns the bucket for a status, or BucketNone.
func BucketOf(status string) StatusBucket {
	return statusBuckets[status]
}

// StatusesFor returns every status string that maps to one of the given buckets.
func StatusesFor(buckets ...StatusBucket) []string {
	var out []string
	for status, b := range statusBuckets {
		for _, want := range buckets {
			if b == want {
				out = append(out, status)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// ── Group B: Archive settings keys (system_settings.key) ──

const (
	SettingAutoArchiveEnabled   = "auto_archive_enabled"
	SettingCompletedHours       = "completed_hours"
	SettingCancelledHours       = "cancelled_hours"
	SettingTestOrdersHours      = "test_orders_hours"
	SettingArchiveIntervalHours = "archive_interval_hours"
	SettingLastArchiveRun       = "last_archive_run"
)

// ArchiveSettingKeys is the fixed list read at the start of every run.
var ArchiveSettingKeys = []string{
	SettingAutoArchiveEnabled,
	SettingCompletedHours,
	SettingCancelledHours,
	SettingTestOrdersHours,
	SettingArchiveIntervalHours,
	SettingLastArchiveRun,
}

// ── Group C: Invocation ──

const (
	ActionCheckStatus  = "check-status"
	ActionRunNow       = "run-now"
	ActionRunScheduled = "run-scheduled"
)

const (
	RunModeManual    = "manual"
	RunModeScheduled = "scheduled"
)

const (
	UserRoleAdmin   = "ADMIN"
	UserRoleManager = "MANAGER"
	UserRoleCashier = "CASHIER"
	UserRoleKitchen = "KITCHEN"
)

const (
	NotificationTypeArchive = "archive"
)
