// internal/model/stats.go
package model

import (
	"encoding/json"
	"errors"
)

// LanguageStats holds line counts of one language within one repository.
type LanguageStats struct {
	Files   int64 `json:"files"`
	Blank   int64 `json:"blank"`
	Comment int64 `json:"comment"`
	Code    int64 `json:"code"`
}

func (s LanguageStats) Validate() error {
	if s.Files < 0 || s.Blank < 0 || s.Comment < 0 || s.Code < 0 {
		return errors.New("negative line count")
	}
	return nil
}

// UnmarshalJSON also accepts the "blank " key written by early backups.
func (s *LanguageStats) UnmarshalJSON(b []byte) error {
	type plain LanguageStats
	var aux struct {
		plain
		LegacyBlank *int64 `json:"blank "`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*s = LanguageStats(aux.plain)
	if aux.LegacyBlank != nil && s.Blank == 0 {
		s.Blank = *aux.LegacyBlank
	}
	return nil
}
