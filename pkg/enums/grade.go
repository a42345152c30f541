package enums

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Grade is a secondary-school year, 1 to 3. The remote API sends it as a
// number or a numeric string; both decode.
type Grade int

const (
	GradeUnknown Grade = 0
	GradeOne     Grade = 1
	GradeTwo     Grade = 2
	GradeThree   Grade = 3
)

func (g Grade) String() string {
	return strconv.Itoa(int(g))
}

// IsValid reports whether g is one of the three known years.
func (g Grade) IsValid() bool {
	return g >= GradeOne && g <= GradeThree
}

// ParseGrade converts raw input into a Grade.
func ParseGrade(value string) (Grade, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || !Grade(n).IsValid() {
		return GradeUnknown, fmt.Errorf("invalid grade %q", value)
	}
	return Grade(n), nil
}

func (g *Grade) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*g = GradeUnknown
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			*g = GradeUnknown
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("invalid grade %q", s)
		}
		*g = Grade(n)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	i, err := n.Int64()
	if err != nil {
		return fmt.Errorf("invalid grade %s", n)
	}
	*g = Grade(i)
	return nil
}
