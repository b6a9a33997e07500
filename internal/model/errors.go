package model

import "errors"

// ErrMinerNotFound reports that no hashrate samples exist for the requested
// miner address.
var ErrMinerNotFound = errors.New("miner not found")
