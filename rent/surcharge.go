package rent

import (
	"github.com/decentchain/contracts-core/collab"
	"github.com/decentchain/contracts-core/cstate"
	log "github.com/erigontech/erigon-lib/log/v3"
	"github.com/holiman/uint256"
)

// ClaimSurcharge invokes the rent engine against dest with the handicap
// appropriate to the caller (spec §4.9's claim_surcharge, §4.6's surcharge
// claim). Exactly one of signedCaller/auxSender is non-nil: a signed caller
// sees a back-dated block number (current_block - SignedClaimHandicap) so
// unsigned block-producer claims (auxSender) get first chance at the reward
// (spec §4.6). If the transition evicts dest, the reward is credited to
// whichever of the two actually claimed it.
func (e *Engine) ClaimSurcharge(overlay *cstate.Overlay, dest collab.AccountID, signedCaller, auxSender *collab.AccountID) (Outcome, error) {
	var recipient collab.AccountID
	var asOfBlock uint64

	switch {
	case auxSender != nil:
		recipient = *auxSender
		asOfBlock = e.blocks.CurrentBlock()
	case signedCaller != nil:
		recipient = *signedCaller
		current := e.blocks.CurrentBlock()
		if current > e.schedule.SignedClaimHandicap {
			asOfBlock = current - e.schedule.SignedClaimHandicap
		}
	default:
		return RentOk, ErrInvalidOriginForSurcharge
	}

	outcome, err := e.transitionAt(overlay, dest, asOfBlock)
	if err != nil {
		return outcome, err
	}
	if outcome == Evicted {
		reward := uint256.NewInt(e.schedule.SurchargeReward)
		overlay.SetBalance(recipient, new(uint256.Int).Add(overlay.GetBalance(recipient), reward))
		log.Debug("rent: surcharge claimed", "dest", dest, "recipient", recipient, "reward", e.schedule.SurchargeReward)
	}
	return outcome, nil
}
