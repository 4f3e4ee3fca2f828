package verification

import (
	"encoding/json"
	"fmt"
	"strings"
)

type storedValue struct {
	OTP      string         `json:"otp"`
	UserData *PendingSignup `json:"userData,omitempty"`
}

// EncodeValue serialises the code and signup data into the stored value.
// Code-only records are stored as the bare code.
func EncodeValue(code string, signup *PendingSignup) (string, error) {
	if signup == nil {
		return code, nil
	}

	b, err := json.Marshal(storedValue{OTP: code, UserData: signup})
	if err != nil {
		return "", fmt.Errorf("encode verification value: %w", err)
	}
	return string(b), nil
}

// DecodeValue is the inverse of EncodeValue. Anything that is neither a
// bare code nor a JSON bundle with a code yields ErrCorrupt.
func DecodeValue(value string) (string, *PendingSignup, error) {
	value = strings.TrimSpace(value)
	if isCode(value) {
		return value, nil, nil
	}

	var sv storedValue
	if err := json.Unmarshal([]byte(value), &sv); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if !isCode(sv.OTP) {
		return "", nil, fmt.Errorf("%w: missing code", ErrCorrupt)
	}

	return sv.OTP, sv.UserData, nil
}

func isCode(s string) bool {
	if len(s) != CodeLength {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
