package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DreamTx is the envelope submitted to the consensus engine for one dream
// block proposal. It is encoded as tagged JSON rather than a delimited join,
// so proposer ids and dream payloads may contain any characters.
type DreamTx struct {
	ID        string `json:"id"`
	Proposer  string `json:"proposer"`
	Dream     string `json:"dream"`
	Timestamp int64  `json:"timestamp"`
}

// NewDreamTx builds an envelope with a fresh proposal ID.
func NewDreamTx(proposer, dream string) DreamTx {
	return DreamTx{
		ID:        uuid.NewString(),
		Proposer:  proposer,
		Dream:     dream,
		Timestamp: time.Now().Unix(),
	}
}

// Encode serializes the envelope for submission.
func (tx DreamTx) Encode() ([]byte, error) {
	data, err := json.Marshal(tx)
	if err != nil {
		return nil, fmt.Errorf("encode dream tx: %w", err)
	}
	return data, nil
}

// DecodeDreamTx parses an envelope previously produced by Encode.
func DecodeDreamTx(data []byte) (DreamTx, error) {
	var tx DreamTx
	if err := json.Unmarshal(data, &tx); err != nil {
		return DreamTx{}, fmt.Errorf("decode dream tx: %w", err)
	}
	if tx.Proposer == "" {
		return DreamTx{}, fmt.Errorf("decode dream tx: missing proposer")
	}
	return tx, nil
}
