package rowstream

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var sampleUsers = []User{
	{UserID: "0a1f6c52-3d0e-4c8e-9b61-2f4d7a01e001", Name: "Amara Okafor", Email: "amara.okafor@example.com", Age: 34},
	{UserID: "0b27e4a9-61c3-4f0d-8a52-7c9e3b12e002", Name: "Bruno Lindqvist", Email: "bruno.lindqvist@example.com", Age: 52},
	{UserID: "0c38d1f7-9a4b-4e21-b7c3-1d8f5c23e003", Name: "Chiara Rossi", Email: "chiara.rossi@example.com", Age: 27},
	{UserID: "0d49c2e6-2b5f-4a3e-9d14-6e0a7d34e004", Name: "Dmitri Volkov", Email: "dmitri.volkov@example.com", Age: 61},
	{UserID: "0e5ab3d5-7c60-4b7f-8e25-3f1b8e45e005", Name: "Esi Mensah", Email: "esi.mensah@example.com", Age: 19},
	{UserID: "0f6b94c4-1d71-4c80-a936-4a2c9f56e006", Name: "Farid Haddad", Email: "farid.haddad@example.com", Age: 45},
	{UserID: "1a7c85b3-8e82-4d91-b047-5b3d0a67e007", Name: "Greta Novak", Email: "greta.novak@example.com", Age: 38},
	{UserID: "1b8d76a2-3f93-4ea2-8158-6c4e1b78e008", Name: "Hiro Tanaka", Email: "hiro.tanaka@example.com", Age: 29},
	{UserID: "1c9e6791-9a04-4fb3-9269-7d5f2c89e009", Name: "Ines Duarte", Email: "ines.duarte@example.com", Age: 73},
	{UserID: "1daf5880-4b15-4ac4-a37a-8e6a3d90e010", Name: "Jonas Berg", Email: "jonas.berg@example.com", Age: 41},
	{UserID: "1eb0497f-0c26-4bd5-b48b-9f7b4ea1e011", Name: "Kavya Iyer", Email: "kavya.iyer@example.com", Age: 23},
	{UserID: "1fc13a6e-5d37-4ce6-859c-0a8c5fb2e012", Name: "Luca Moretti", Email: "luca.moretti@example.com", Age: 56},
	{UserID: "2ad22b5d-0e48-4df7-96ad-1b9d6ac3e013", Name: "Mei Chen", Email: "mei.chen@example.com", Age: 31},
	{UserID: "2be31c4c-6f59-4e08-a7be-2cae7bd4e014", Name: "Nils Andersen", Email: "nils.andersen@example.com", Age: 48},
	{UserID: "2cf40d3b-1a6a-4f19-b8cf-3dbf8ce5e015", Name: "Olu Adeyemi", Email: "olu.adeyemi@example.com", Age: 36},
}

// SampleUsers returns a copy of the built-in sample data set.
func SampleUsers() []User {
	return append([]User(nil), sampleUsers...)
}

// WriteSampleUsersCSV writes the sample users as CSV with a header line.
func WriteSampleUsersCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"user_id", "name", "email", "age"}); err != nil {
		return err
	}

	for _, u := range sampleUsers {
		if err := cw.Write([]string{u.UserID, u.Name, u.Email, strconv.Itoa(u.Age)}); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// LoadUsersCSV inserts the users read from csvInput, but only when the table
// is still empty; otherwise it returns ErrTableNotEmpty without reading. An
// empty user_id is replaced by a random UUID, an age that is not a plain
// number becomes 0 and lines with fewer than 4 fields are skipped. All rows go
// in one transaction.
func LoadUsersCSV(ctx context.Context, repo Repository[string, User], csvInput io.Reader, withHeader bool, Tx ...Transaction) (int, error) {
	var options []QueryOption
	if len(Tx) > 0 {
		options = append(options, WithTransaction(Tx[0]))
	}

	count, err := repo.Count(ctx, nil, options...)
	if err != nil {
		return 0, err
	}

	if count > 0 {
		return 0, fmt.Errorf("%w: %s has %d rows", ErrTableNotEmpty, repo.GetTableDef().FullTableName(), count)
	}

	users, err := ReadUsersCSV(csvInput, withHeader, repo.GetTableDef().ColumnNames())
	if err != nil {
		return 0, err
	}

	if _, err := repo.InsertAll(ctx, users, options...); err != nil {
		return 0, err
	}

	return len(users), nil
}

// ReadUsersCSV parses users from csvInput. When withHeader is set the first
// line must name columns in order, case-insensitively.
func ReadUsersCSV(csvInput io.Reader, withHeader bool, columns []string) ([]User, error) {
	rd := csv.NewReader(csvInput)
	rd.FieldsPerRecord = -1
	rd.TrimLeadingSpace = true

	if withHeader {
		line, err := rd.Read()
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		if len(line) != len(columns) {
			return nil, fmt.Errorf("column count in CSV does not match table, expected %d got %d", len(columns), len(line))
		}

		for i, col := range line {
			if !strings.EqualFold(strings.TrimSpace(col), columns[i]) {
				return nil, fmt.Errorf("columns header doesn't match the table columns at %d: %q", i, col)
			}
		}
	}

	var users []User
	for {
		line, err := rd.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		if len(line) < 4 {
			continue
		}

		id := strings.TrimSpace(line[0])
		if id == "" {
			id = uuid.NewString()
		}

		users = append(users, User{
			UserID: id,
			Name:   strings.TrimSpace(line[1]),
			Email:  strings.TrimSpace(line[2]),
			Age:    parseAge(strings.TrimSpace(line[3])),
		})
	}

	return users, nil
}

func parseAge(s string) int {
	if s == "" {
		return 0
	}

	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
	}

	age, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}

	return age
}
