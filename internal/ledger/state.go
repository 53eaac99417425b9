package ledger

import (
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/feral-file/ff-yield-ledger/internal/domain"
)

// state is every mutable field of a ledger. It is owned by exactly one Ledger
// and only touched while that ledger's operation lock is held.
type state struct {
	owner        common.Address
	fundWallet   common.Address
	paymentToken common.Address

	price        *uint256.Int
	mintFees     *uint256.Int
	transferFees *uint256.Int
	maxSupply    uint64

	admins map[common.Address]bool

	// whitelisted is the source of truth; whitelist/whitelistIndex mirror it
	// for enumeration and O(1) swap-and-truncate removal.
	whitelisted    map[common.Address]bool
	whitelist      []common.Address
	whitelistIndex map[common.Address]int

	// tokenOwners[id] is the holder of token id; len(tokenOwners) is totalSupply
	tokenOwners    []common.Address
	balances       map[common.Address]uint64
	tokenApprovals map[uint64]common.Address
	operators      map[common.Address]map[common.Address]bool

	sequence uint64
}

func newState(p Params) *state {
	return &state{
		owner:          p.Owner,
		fundWallet:     p.OwnerFundReceiptWallet,
		paymentToken:   p.PaymentToken,
		price:          new(uint256.Int).Set(p.Price),
		mintFees:       new(uint256.Int).Set(p.MintFees),
		transferFees:   new(uint256.Int).Set(p.TransferFees),
		maxSupply:      p.MaxSupply,
		admins:         make(map[common.Address]bool),
		whitelisted:    make(map[common.Address]bool),
		whitelistIndex: make(map[common.Address]int),
		balances:       make(map[common.Address]uint64),
		tokenApprovals: make(map[uint64]common.Address),
		operators:      make(map[common.Address]map[common.Address]bool),
	}
}

// isOwner is false for everyone once ownership is renounced
func (s *state) isOwner(addr common.Address) bool {
	return s.owner != domain.ZeroAddress && addr == s.owner
}

func (s *state) isAdminOrOwner(addr common.Address) bool {
	return s.isOwner(addr) || s.admins[addr]
}

func (s *state) totalSupply() uint64 {
	return uint64(len(s.tokenOwners))
}

func (s *state) exists(id uint64) bool {
	return id < s.totalSupply()
}

func (s *state) isApprovedForAll(owner, operator common.Address) bool {
	return s.operators[owner][operator]
}

func (s *state) addWhitelist(addr common.Address) {
	s.whitelisted[addr] = true
	s.whitelistIndex[addr] = len(s.whitelist)
	s.whitelist = append(s.whitelist, addr)
}

// removeWhitelist moves the last entry into the removed slot
func (s *state) removeWhitelist(addr common.Address) {
	i := s.whitelistIndex[addr]
	last := len(s.whitelist) - 1
	moved := s.whitelist[last]
	s.whitelist[i] = moved
	s.whitelistIndex[moved] = i
	s.whitelist = s.whitelist[:last]
	delete(s.whitelistIndex, addr)
	delete(s.whitelisted, addr)
}

func (s *state) assign(to common.Address, id uint64) {
	from := s.tokenOwners[id]
	if from != domain.ZeroAddress {
		s.balances[from]--
		if s.balances[from] == 0 {
			delete(s.balances, from)
		}
	}
	s.tokenOwners[id] = to
	s.balances[to]++
	delete(s.tokenApprovals, id)
}

func (s *state) clone() *state {
	c := *s
	c.price = new(uint256.Int).Set(s.price)
	c.mintFees = new(uint256.Int).Set(s.mintFees)
	c.transferFees = new(uint256.Int).Set(s.transferFees)
	c.admins = cloneMap(s.admins)
	c.whitelisted = cloneMap(s.whitelisted)
	c.whitelist = append([]common.Address(nil), s.whitelist...)
	c.whitelistIndex = cloneMap(s.whitelistIndex)
	c.tokenOwners = append([]common.Address(nil), s.tokenOwners...)
	c.balances = cloneMap(s.balances)
	c.tokenApprovals = cloneMap(s.tokenApprovals)
	c.operators = make(map[common.Address]map[common.Address]bool, len(s.operators))
	for owner, ops := range s.operators {
		c.operators[owner] = cloneMap(ops)
	}
	return &c
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	c := make(map[K]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func (s *state) snapshot(name, symbol, baseURI string) *domain.Snapshot {
	snap := &domain.Snapshot{
		Name:                   name,
		Symbol:                 symbol,
		BaseURI:                baseURI,
		Owner:                  s.owner,
		OwnerFundReceiptWallet: s.fundWallet,
		UsdcAddress:            s.paymentToken,
		Price:                  new(uint256.Int).Set(s.price),
		MintFees:               new(uint256.Int).Set(s.mintFees),
		TransferFees:           new(uint256.Int).Set(s.transferFees),
		MaxSupply:              s.maxSupply,
		Admins:                 sortedKeys(s.admins),
		Whitelist:              append([]common.Address{}, s.whitelist...),
		TokenOwners:            append([]common.Address{}, s.tokenOwners...),
		TokenApprovals:         cloneMap(s.tokenApprovals),
		Operators:              make(map[common.Address][]common.Address, len(s.operators)),
		Sequence:               s.sequence,
	}
	for owner, ops := range s.operators {
		if list := sortedKeys(ops); len(list) > 0 {
			snap.Operators[owner] = list
		}
	}
	return snap
}

func sortedKeys(m map[common.Address]bool) []common.Address {
	out := make([]common.Address, 0, len(m))
	for addr, ok := range m {
		if ok {
			out = append(out, addr)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Cmp(out[j]) < 0
	})
	return out
}

// stateFromSnapshot rebuilds the derived indexes of a persisted snapshot
func stateFromSnapshot(snap *domain.Snapshot) (*state, error) {
	if snap.Price == nil || snap.MintFees == nil || snap.TransferFees == nil {
		return nil, fmt.Errorf("snapshot is missing economic parameters")
	}
	if uint64(len(snap.TokenOwners)) > snap.MaxSupply {
		return nil, fmt.Errorf("snapshot holds %d tokens over max supply %d", len(snap.TokenOwners), snap.MaxSupply)
	}

	s := &state{
		owner:          snap.Owner,
		fundWallet:     snap.OwnerFundReceiptWallet,
		paymentToken:   snap.UsdcAddress,
		price:          new(uint256.Int).Set(snap.Price),
		mintFees:       new(uint256.Int).Set(snap.MintFees),
		transferFees:   new(uint256.Int).Set(snap.TransferFees),
		maxSupply:      snap.MaxSupply,
		admins:         make(map[common.Address]bool, len(snap.Admins)),
		whitelisted:    make(map[common.Address]bool, len(snap.Whitelist)),
		whitelistIndex: make(map[common.Address]int, len(snap.Whitelist)),
		tokenOwners:    append([]common.Address(nil), snap.TokenOwners...),
		balances:       make(map[common.Address]uint64),
		tokenApprovals: cloneMap(snap.TokenApprovals),
		operators:      make(map[common.Address]map[common.Address]bool, len(snap.Operators)),
		sequence:       snap.Sequence,
	}
	for _, a := range snap.Admins {
		s.admins[a] = true
	}
	for _, w := range snap.Whitelist {
		if s.whitelisted[w] {
			return nil, fmt.Errorf("snapshot whitelists %s twice", w.Hex())
		}
		s.addWhitelist(w)
	}
	for _, holder := range s.tokenOwners {
		s.balances[holder]++
	}
	for owner, ops := range snap.Operators {
		s.operators[owner] = make(map[common.Address]bool, len(ops))
		for _, op := range ops {
			s.operators[owner][op] = true
		}
	}
	return s, nil
}
