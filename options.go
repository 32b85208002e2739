package scanreader

import "fmt"

// Logger receives diagnostic messages from a Scan. The loggers in
// internal/logger implement it; by default nothing is logged.
type Logger interface {
	Debugf(format string, a ...interface{})
	Infof(format string, a ...interface{})
	Errorf(format string, a ...interface{})
}

// Option configures a Scan during construction.
//
// Example:
//
//	scan, err := scanreader.Open(paths,
//	    scanreader.WithJoinContiguous(true),
//	)
type Option func(*Scan) error

// WithJoinContiguous merges ROI fields at the same depth that together
// form a larger rectangle into one field. Uniform scans are not affected.
func WithJoinContiguous(join bool) Option {
	return func(s *Scan) error {
		s.joinContiguous = join
		return nil
	}
}

// WithLogger sends field construction and page counting messages to l.
func WithLogger(l Logger) Option {
	return func(s *Scan) error {
		if l == nil {
			return fmt.Errorf("nil logger")
		}
		s.log = l
		return nil
	}
}
