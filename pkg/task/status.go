package task

// Status is the process exit code a measurement task reports back to
// the invoking scheduler. It is the sole outcome contract between the
// two: the scheduler never inspects results, only the exit code.
type Status int

const (
	StatusSuccess       Status = 0
	StatusNoHost        Status = 68
	StatusSoftwareError Status = 70
	StatusOSError       Status = 71
	StatusFileMissing   Status = 72
	StatusConfError     Status = 78

	// StatusTimeout follows the GNU timeout(1) convention.
	StatusTimeout Status = 124
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusNoHost:
		return "no host reachable"
	case StatusSoftwareError:
		return "software error"
	case StatusOSError:
		return "os error"
	case StatusFileMissing:
		return "executable missing"
	case StatusConfError:
		return "configuration error"
	case StatusTimeout:
		return "timeout"
	}
	return "unknown status"
}
