package event

// Payload field values arrive as decimal strings, the way the ledger
// subscription delivers contract return values. Parsing into exact numeric
// types happens in the marshal package.

// AddEmployeePayload captures the payload for AddEmployee events.
type AddEmployeePayload struct {
	EmployeeID     string `json:"employeeId"`
	AccountAddress string `json:"accountAddress"`
	InitialSalary  string `json:"initialDenominationSalary"`
	StartDate      string `json:"startDate"`
	Role           string `json:"role"`
}

// TerminateEmployeePayload captures the payload for TerminateEmployee events.
type TerminateEmployeePayload struct {
	EmployeeID string `json:"employeeId"`
	EndDate    string `json:"endDate"`
}

// SetEmployeeSalaryPayload captures the payload for SetEmployeeSalary events.
type SetEmployeeSalaryPayload struct {
	EmployeeID string `json:"employeeId"`
	Salary     string `json:"denominationSalary"`
}

// EmployeeAmountPayload captures the payload shared by the accrued salary,
// bonus, and reimbursement events.
type EmployeeAmountPayload struct {
	EmployeeID string `json:"employeeId"`
	Amount     string `json:"amount"`
}

// ChangeAddressPayload captures the payload for ChangeAddressByEmployee events.
type ChangeAddressPayload struct {
	OldAddress string `json:"oldAddress"`
	NewAddress string `json:"newAddress"`
}

// EmployeeRefPayload captures just the employee id, the only field the
// refetch-and-merge handlers read from their payloads.
type EmployeeRefPayload struct {
	EmployeeID string `json:"employeeId"`
}

// DetermineAllocationPayload captures the payload for DetermineAllocation events.
type DetermineAllocationPayload struct {
	EmployeeID string `json:"employeeId"`
}

// SendPaymentPayload captures the payload for SendPayment events.
type SendPaymentPayload struct {
	Employee     string `json:"employee"`
	Token        string `json:"token"`
	Amount       string `json:"amount"`
	ExchangeRate string `json:"exchangeRate"`
	PaymentDate  string `json:"paymentDate"`
}

// AddAllowedTokenPayload captures the payload for AddAllowedToken events.
type AddAllowedTokenPayload struct {
	Token string `json:"token"`
}

// SetPriceFeedPayload captures the payload for SetPriceFeed events.
type SetPriceFeedPayload struct {
	Feed string `json:"feed"`
}

// SetRateExpiryTimePayload captures the payload for SetRateExpiryTime events.
type SetRateExpiryTimePayload struct {
	Time string `json:"time"`
}
