// Package datastore holds the domain-specific persistence the tool
// registry's concrete tools write through: compliance rules in MySQL
// and extracted contract fields in MongoDB.
package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// ComplianceStore queries the jurisdiction/contract-type rule table the
// compliance_checking tool evaluates extracted fields against.
type ComplianceStore struct {
	db *sql.DB
}

// ComplianceRule is one row of the rule table.
type ComplianceRule struct {
	ID             int64
	Jurisdiction   string
	ContractType   string
	FieldName      string
	RequiredRegex  string
	FailureMessage string
}

func NewComplianceStore(dsn string) (*ComplianceStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening compliance store: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &ComplianceStore{db: db}, nil
}

// RulesFor returns the active rules for a jurisdiction/contract-type pair.
func (s *ComplianceStore) RulesFor(ctx context.Context, jurisdiction, contractType string) ([]ComplianceRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, jurisdiction, contract_type, field_name, required_regex, failure_message
		FROM compliance_rules
		WHERE jurisdiction = ? AND contract_type = ? AND active = 1`,
		jurisdiction, contractType,
	)
	if err != nil {
		return nil, fmt.Errorf("querying compliance rules: %w", err)
	}
	defer rows.Close()

	var out []ComplianceRule
	for rows.Next() {
		var r ComplianceRule
		if err := rows.Scan(&r.ID, &r.Jurisdiction, &r.ContractType, &r.FieldName, &r.RequiredRegex, &r.FailureMessage); err != nil {
			return nil, fmt.Errorf("scanning compliance rule: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *ComplianceStore) Close() error { return s.db.Close() }
