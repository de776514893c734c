package domain

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

const (
	MailTypeCreateUser          = "create_user"
	MailTypeResetPassword       = "reset_password"
	MailTypeOverAllocationAlert = "over_allocation_alert"
)

type CreateUserMailData struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type ResetPasswordMailData struct {
	FullName   string `json:"fullName"`
	OTP        string `json:"otp"`
	Expiration int    `json:"expiration"`
}

type OverAllocationItem struct {
	Engineer            string  `json:"engineer"`
	Quarter             string  `json:"quarter"`
	EffectiveAllocation float64 `json:"effectiveAllocation"`
}

type OverAllocationAlertMailData struct {
	FullName string               `json:"fullName"`
	Items    []OverAllocationItem `json:"items"`
}
