package ledger

import (
	"strconv"
	"time"
)

// BirthdateLayout is the day/month/year format birthdates are written in.
const BirthdateLayout = "02/01/2006"

// birthdateParseLayout also accepts single-digit days and months.
const birthdateParseLayout = "2/1/2006"

// SSN is a social security number. Its decimal form has exactly nine characters.
type SSN struct {
	value int64
}

// NewSSN validates n as a social security number.
func NewSSN(n int64) (SSN, error) {
	if len(strconv.FormatInt(n, 10)) != 9 {
		return SSN{}, NewValidationError("social_security_number",
			"value is not 9 digits - "+strconv.FormatInt(n, 10))
	}
	return SSN{value: n}, nil
}

// Value returns the number.
func (s SSN) Value() int64 { return s.value }

// String returns the decimal form.
func (s SSN) String() string { return strconv.FormatInt(s.value, 10) }

// FirstName is a non-empty given name.
type FirstName struct {
	value string
}

// NewFirstName validates a given name.
func NewFirstName(s string) (FirstName, error) {
	if s == "" {
		return FirstName{}, NewValidationError("first_name", "must not be empty")
	}
	return FirstName{value: s}, nil
}

// String returns the name.
func (n FirstName) String() string { return n.value }

// LastName is a non-empty family name.
type LastName struct {
	value string
}

// NewLastName validates a family name.
func NewLastName(s string) (LastName, error) {
	if s == "" {
		return LastName{}, NewValidationError("last_name", "must not be empty")
	}
	return LastName{value: s}, nil
}

// String returns the name.
func (n LastName) String() string { return n.value }

// Birthdate is a calendar date written as dd/mm/YYYY.
type Birthdate struct {
	value string
	date  time.Time
}

// ParseBirthdate parses a dd/mm/YYYY date.
func ParseBirthdate(s string) (Birthdate, error) {
	t, err := time.Parse(birthdateParseLayout, s)
	if err != nil {
		return Birthdate{}, NewValidationError("birth_date", "could not parse date - "+s)
	}
	return Birthdate{value: s, date: t}, nil
}

// Year returns the year.
func (b Birthdate) Year() int { return b.date.Year() }

// Month returns the month, 1 to 12.
func (b Birthdate) Month() int { return int(b.date.Month()) }

// Day returns the day of the month.
func (b Birthdate) Day() int { return b.date.Day() }

// Time returns the date at midnight UTC.
func (b Birthdate) Time() time.Time { return b.date }

// Value returns the string the date was parsed from.
func (b Birthdate) Value() string { return b.value }

// String returns the date in BirthdateLayout.
func (b Birthdate) String() string { return b.date.Format(BirthdateLayout) }
