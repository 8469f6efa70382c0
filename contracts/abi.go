package contracts

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Only the fragments this client calls. The deployed contracts expose more.
const (
	TokenABI = `[
	{"type":"function","name":"increaseAllowance","stateMutability":"nonpayable",
	 "inputs":[{"name":"spender","type":"address"},{"name":"addedValue","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"allowance","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"account","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"decimals","stateMutability":"view",
	 "inputs":[],
	 "outputs":[{"name":"","type":"uint8"}]}
]`

	TournamentABI = `[
	{"type":"function","name":"participate","stateMutability":"nonpayable",
	 "inputs":[{"name":"_nickname","type":"string"},{"name":"_amount","type":"uint256"}],
	 "outputs":[]},
	{"type":"function","name":"grantPrize","stateMutability":"nonpayable",
	 "inputs":[],
	 "outputs":[]},
	{"type":"function","name":"addressToPlayerId","stateMutability":"view",
	 "inputs":[{"name":"","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"players","stateMutability":"view",
	 "inputs":[{"name":"","type":"uint256"}],
	 "outputs":[{"name":"nickname","type":"string"},{"name":"score","type":"uint256"},{"name":"life","type":"uint256"}]}
]`

	OrganizerRegistryABI = `[
	{"type":"function","name":"addressToOrganizerId","stateMutability":"view",
	 "inputs":[{"name":"","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]}
]`

	OrganizerNFTABI = `[
	{"type":"function","name":"getOrganizerDetail","stateMutability":"view",
	 "inputs":[{"name":"id","type":"uint256"}],
	 "outputs":[{"name":"","type":"tuple","components":[
		{"name":"username","type":"string"},
		{"name":"email","type":"string"},
		{"name":"phone_number","type":"string"},
		{"name":"balance","type":"uint256"}]}]}
]`
)

var (
	tokenABI             = mustParse(TokenABI)
	tournamentABI        = mustParse(TournamentABI)
	organizerRegistryABI = mustParse(OrganizerRegistryABI)
	organizerNFTABI      = mustParse(OrganizerNFTABI)
)

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("contracts: bad ABI: " + err.Error())
	}
	return parsed
}
