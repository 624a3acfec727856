package entity

// Profile roles
const (
	RoleEmployee      = "EMPLOYEE"
	RoleChefia        = "CHEFIA"        // department head
	RoleSubsecretario = "SUBSECRETARIO" // deputy secretary
	RoleDAD           = "DAD"           // audit / administrative directorate
	RoleAdmin         = "ADMIN"
	RoleSystem        = "SYSTEM"
)

// SystemActorID is recorded as the actor of scheduler-driven transitions
const SystemActorID = "system"

// Funding sources
const (
	FundingTesouro = "TESOURO"
	FundingFIPAT   = "FIPAT"
	FundingBID     = "BID"
)

// FundingSourceLabels maps funding codes to their display names
var FundingSourceLabels = map[string]string{
	FundingTesouro: "Tesouro",
	FundingFIPAT:   "FIPAT",
	FundingBID:     "BID",
}

// IsValidFundingSource reports whether code is a known funding source
func IsValidFundingSource(code string) bool {
	_, ok := FundingSourceLabels[code]
	return ok
}

// Setting keys
const (
	SettingPortariaTemplate = "portaria_template"
)
