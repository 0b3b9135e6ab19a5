package store

import "time"

// AppRecord holds the launch counter for one package.
type AppRecord struct {
	PackageName   string
	ProcessName   string // last process seen for the package
	Count         int64
	FirstLaunched time.Time
	LastLaunched  time.Time
}
