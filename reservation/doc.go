// Package reservation implements the time-boxed username reservation protocol
// on top of Bun. A requested name is provisionally held for a grace period
// while the owning profile update is in flight, promoted to permanent
// ownership on confirmation, and reclaimable by other users once the grace
// window elapses without confirmation. The repository delegates all mutual
// exclusion to the database transaction layer.
package reservation
