package registry

import (
	"fmt"
	"strings"
	"time"

	"github.com/vocdoni/sealedvote/types"
)

// ProposalSetup holds the parameters chosen by the creator of a proposal.
type ProposalSetup struct {
	Title            string           `json:"title"`
	Description      string           `json:"description,omitempty"`
	StartTime        time.Time        `json:"startTime"`
	EndTime          time.Time        `json:"endTime"`
	Buffer           time.Duration    `json:"buffer"`
	VoteType         types.VoteType   `json:"voteType"`
	Disclosure       types.Disclosure `json:"disclosure"`
	OptionCount      int              `json:"optionCount"`
	Options          []types.Option   `json:"options"`
	SnapshotRef      string           `json:"snapshotRef,omitempty"`
	EligibilityRoot  types.HexBytes   `json:"eligibilityRoot,omitempty"`
	EnableOverwrite  bool             `json:"enableOverwrite"`
	EnableDelegation bool             `json:"enableDelegation"`
}

// Validate checks the parameters. Every failure wraps types.ErrConfig.
func (s *ProposalSetup) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: missing setup", types.ErrConfig)
	}
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("%w: empty title", types.ErrConfig)
	}
	if s.OptionCount < types.MinOptions || s.OptionCount > types.MaxOptions {
		return fmt.Errorf("%w: option count %d out of [%d, %d]",
			types.ErrConfig, s.OptionCount, types.MinOptions, types.MaxOptions)
	}
	if len(s.Options) != s.OptionCount {
		return fmt.Errorf("%w: %d options described, option count is %d",
			types.ErrConfig, len(s.Options), s.OptionCount)
	}
	enabled := false
	for _, o := range s.Options {
		enabled = enabled || o.Enabled
	}
	if !enabled {
		return fmt.Errorf("%w: no enabled option", types.ErrConfig)
	}
	if !s.EndTime.After(s.StartTime) {
		return fmt.Errorf("%w: end time %s is not after start time %s", types.ErrConfig, s.EndTime, s.StartTime)
	}
	if s.Buffer < 0 || s.Buffer > types.MaxBuffer {
		return fmt.Errorf("%w: buffer %s out of [0, %s]", types.ErrConfig, s.Buffer, types.MaxBuffer)
	}
	if !s.VoteType.Valid() {
		return fmt.Errorf("%w: unknown vote type %d", types.ErrConfig, s.VoteType)
	}
	if !s.Disclosure.Valid() {
		return fmt.Errorf("%w: unknown disclosure policy %d", types.ErrConfig, s.Disclosure)
	}
	if s.VoteType.Weighted() && s.SnapshotRef == "" {
		return fmt.Errorf("%w: %s proposals need a snapshot reference", types.ErrConfig, s.VoteType)
	}
	return nil
}

func (s *ProposalSetup) proposal(pid types.ProposalID) *types.Proposal {
	p := &types.Proposal{
		ID:               pid,
		Title:            s.Title,
		Description:      s.Description,
		StartTime:        s.StartTime,
		EndTime:          s.EndTime,
		Buffer:           s.Buffer,
		VoteType:         s.VoteType,
		Disclosure:       s.Disclosure,
		OptionCount:      s.OptionCount,
		Options:          s.Options,
		SnapshotRef:      s.SnapshotRef,
		EligibilityRoot:  s.EligibilityRoot,
		EnableOverwrite:  s.EnableOverwrite,
		EnableDelegation: s.EnableDelegation,
	}
	return p.Clone()
}
