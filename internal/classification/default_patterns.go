package classification

// DefaultPatterns returns the built-in English and French description markers.
// Patterns run against normalized text: upper case, accents folded.
func DefaultPatterns() []Pattern {
	return []Pattern{
		// Payroll - highest priority
		{
			Name:     "Direct Deposit",
			Type:     PatternTypePayroll,
			Regex:    `\b(DIRECTDEP|DIRECT\s*DEP(OSIT)?|DIR\s*DEP|PAYROLL|SALARY|WAGES|PAY\s*DEP)\b`,
			Priority: 100,
		},
		{
			Name:     "Paie",
			Type:     PatternTypePayroll,
			Regex:    `\b(PAIE|SALAIRE|DEPOT\s*DIRECT|DEPOT\s*PAIE)\b`,
			Priority: 100,
		},

		// Other income
		{
			Name:     "Government Deposit",
			Type:     PatternTypeIncome,
			Regex:    `\b(CANADA\s*(FED|PRO)|GST\s*CREDIT|CCB|CPP|EI\s*BENEFIT|TAX\s*REF(UND)?|REMB\s*TPS|ALLOCATION)\b`,
			Priority: 95,
		},
		{
			Name:     "Interest Income",
			Type:     PatternTypeIncome,
			Regex:    `\b(INTEREST\s*(PAID|EARNED|CREDIT)|INT\s*EARNED|DIVIDEND|INTERETS?\s*(CREDITES?|GAGNES?))\b`,
			Priority: 90,
		},
		{
			Name:     "Refund",
			Type:     PatternTypeIncome,
			Regex:    `\b(REFUND|REIMB|REIMBURSEMENT|CASHBACK|CASH\s*BACK|REMBOURSEMENT)\b`,
			Priority: 85,
		},

		// Transfers
		{
			Name:     "Wire Transfer",
			Type:     PatternTypeTransfer,
			Regex:    `\b(WIRE\s*(IN|OUT|TRANSFER|XFER)|TELEVIREMENT)\b`,
			Priority: 85,
		},
		{
			Name:     "Account Transfer",
			Type:     PatternTypeTransfer,
			Regex:    `\b(TRANSFER|XFER|TFR|E-TRANSFER|ETRANSFER|VIREMENT|VIR\s*INTERAC)\b`,
			Priority: 80,
		},
		{
			Name:     "Savings Transfer",
			Type:     PatternTypeTransfer,
			Regex:    `\b(TO\s*SAVINGS|FROM\s*SAVINGS|VERS\s*EPARGNE|DE\s*EPARGNE)\b`,
			Priority: 75,
		},
		{
			Name:     "Credit Card Payment",
			Type:     PatternTypeTransfer,
			Regex:    `\b(CC\s*PAYMENT|CREDIT\s*CARD\s*PAY(MENT)?|PAYMENT\s*THANK\s*YOU|PAIEMENT\s*CARTE(\s*DE)?\s*CREDIT|MERCI\s*POUR\s*(LE|VOTRE)\s*PAIEMENT)\b`,
			Priority: 75,
		},

		// Cash
		{
			Name:     "ATM Withdrawal",
			Type:     PatternTypeCash,
			Regex:    `\b(ATM|ABM|CASH\s*WITHDRAWAL|GAB|GUICHET|RETRAIT\s*(AU\s*)?GAB|RETRAIT\s*GUICHET)\b`,
			Priority: 50,
		},

		// Fees
		{
			Name:     "Bank Fee",
			Type:     PatternTypeFee,
			Regex:    `\b(SERVICE\s*(CHARGE|CHG|FEE)|MONTHLY\s*(ACCOUNT\s*)?FEE|ACCOUNT\s*FEE|NSF|OVERDRAFT|OD\s*INTEREST|FRAIS(\s*DE\s*SERVICE|\s*MENSUELS)?)\b`,
			Priority: 45,
		},
	}
}
