package model

import (
	"fmt"
	"strings"
)

// PassType is the access credential an appointment is for. Values are wire
// and storage codes.
type PassType int

const (
	PassTypeNotSet PassType = iota
	PassTypeGolfPass
	PassTypeVisitorPass
	PassTypeVetCard
	PassTypeContractor
)

func (p PassType) String() string {
	switch p {
	case PassTypeNotSet:
		return "NotSet"
	case PassTypeGolfPass:
		return "GolfPass"
	case PassTypeVisitorPass:
		return "VisitorPass"
	case PassTypeVetCard:
		return "VetCard"
	case PassTypeContractor:
		return "Contractor"
	default:
		return fmt.Sprintf("PassType(%d)", int(p))
	}
}

// PassTypeFromService maps a kiosk service code to a pass type. Unknown or
// empty codes book a visitor pass.
func PassTypeFromService(code string) PassType {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "golf":
		return PassTypeGolfPass
	case "vhic":
		return PassTypeVetCard
	case "dbids":
		return PassTypeContractor
	default:
		return PassTypeVisitorPass
	}
}
