package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// MetricsEndpoint serves the prometheus metrics
	MetricsEndpoint = "/metrics"
	// EncryptionKeyEndpoint returns the key ballots are encrypted under
	EncryptionKeyEndpoint = "/encryptionkey"

	ProposalURLParam = "proposalId"
	AddressURLParam  = "address"

	// ProposalsEndpoint creates (POST) and lists (GET) proposals
	ProposalsEndpoint = "/proposals"
	// ProposalEndpoint returns a proposal
	ProposalEndpoint = "/proposals/{" + ProposalURLParam + "}"
	// ProposalCancelEndpoint cancels a proposal
	ProposalCancelEndpoint = ProposalEndpoint + "/cancel"
	// ProposalFinalizeEndpoint finalizes a proposal once its buffer is over
	ProposalFinalizeEndpoint = ProposalEndpoint + "/finalize"
	// ProposalResultEndpoint returns the published result of a proposal
	ProposalResultEndpoint = ProposalEndpoint + "/result"
	// ProposalVoterEndpoint returns the ballot metadata of a voter
	ProposalVoterEndpoint = ProposalEndpoint + "/voters/{" + AddressURLParam + "}"
	// ProposalDelegationsEndpoint lists the delegations of a proposal
	ProposalDelegationsEndpoint = ProposalEndpoint + "/delegations"

	// VotesEndpoint is the endpoint for submitting a vote
	VotesEndpoint = "/votes"
	// DelegationsEndpoint records a delegation
	DelegationsEndpoint = "/delegations"
	// BalancesEndpoint loads voter balances into a snapshot
	BalancesEndpoint = "/balances"

	// GetBalanceEndpoint returns a voter balance, selected with the
	// ?snapshot= and ?identity= query
	GetBalanceEndpoint        = "/balances"
	BalanceSnapshotQueryParam = "snapshot"
	BalanceIdentityQueryParam = "identity"

	// Census endpoints. The census is selected with the ?id= query, proofs
	// and sizes can also use ?root=.
	NewCensusEndpoint             = "/census"
	AddCensusParticipantsEndpoint = "/census/participants"
	GetCensusRootEndpoint         = "/census/root"
	GetCensusSizeEndpoint         = "/census/size"
	DeleteCensusEndpoint          = "/census"
	GetCensusProofEndpoint        = "/census/proof"
	CensusIDQueryParam            = "id"
	CensusRootQueryParam          = "root"
	CensusKeyQueryParam           = "key"
)
