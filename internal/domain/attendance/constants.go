package attendance

const (
	StatusPresent = "PRESENT"
	StatusAbsent  = "ABSENT"
	StatusHalfDay = "HALF_DAY"
	StatusLeave   = "LEAVE"
)

const (
	MethodManual      = "MANUAL"
	MethodFingerprint = "FINGERPRINT"
	MethodPIN         = "PIN"
)

const (
	ActionCheckIn  = "CHECK_IN"
	ActionCheckOut = "CHECK_OUT"
)

const (
	StrategyBest  = "best"
	StrategyFirst = "first"

	DefaultThreshold = 0.60
)

func validStatus(status string) bool {
	switch status {
	case StatusPresent, StatusAbsent, StatusHalfDay, StatusLeave:
		return true
	}
	return false
}

func validMethod(method string) bool {
	switch method {
	case MethodManual, MethodFingerprint, MethodPIN:
		return true
	}
	return false
}
