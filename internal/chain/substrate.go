// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chain

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"

	gsrpc "github.com/centrifuge/go-substrate-rpc-client/v4"
	"github.com/centrifuge/go-substrate-rpc-client/v4/signature"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
	log "github.com/sirupsen/logrus"

	"github.com/dfusionai/Vericore-sub000/internal/wallet"
)

const subtensorPallet = "SubtensorModule"

// weightsVersionKey is pinned to 0; the pallet accepts it for subnets
// without a version requirement.
const weightsVersionKey = 0

// axonRecord mirrors the pallet's AxonInfo storage value.
type axonRecord struct {
	Block        types.U64
	Version      types.U32
	IP           types.U128
	Port         types.U16
	IPType       types.U8
	Protocol     types.U8
	Placeholder1 types.U8
	Placeholder2 types.U8
}

// Substrate implements Client over a subtensor node RPC endpoint.
type Substrate struct {
	api     *gsrpc.SubstrateAPI
	meta    *types.Metadata
	netuid  int
	keypair signature.KeyringPair
}

// NewSubstrate connects to the node and loads runtime metadata. The wallet
// seed signs set_weights extrinsics.
func NewSubstrate(endpoint string, netuid int, w *wallet.Wallet) (*Substrate, error) {
	api, err := gsrpc.NewSubstrateAPI(endpoint)
	if err != nil {
		return nil, fmt.Errorf("chain: connect %s: %w", endpoint, err)
	}
	meta, err := api.RPC.State.GetMetadataLatest()
	if err != nil {
		return nil, fmt.Errorf("chain: fetch metadata: %w", err)
	}

	keypair, err := signature.KeyringPairFromSecret(w.SeedHex(), wallet.SS58Prefix)
	if err != nil {
		return nil, fmt.Errorf("chain: build keyring: %w", err)
	}

	return &Substrate{api: api, meta: meta, netuid: netuid, keypair: keypair}, nil
}

// SyncMetagraph walks the subnet's UID slots and resolves each hotkey and
// axon endpoint.
func (s *Substrate) SyncMetagraph(ctx context.Context) (*Metagraph, error) {
	n, err := s.subnetSize()
	if err != nil {
		return nil, err
	}

	mg := &Metagraph{
		NetUID:  s.netuid,
		Hotkeys: make([]string, n),
		Axons:   make([]AxonInfo, n),
		Stakes:  make([]float64, n),
	}

	for uid := 0; uid < n; uid++ {
		account, ok, err := s.hotkeyAt(uid)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		hotkey := wallet.SS58Encode(account[:], wallet.SS58Prefix)
		mg.Hotkeys[uid] = hotkey
		mg.Axons[uid] = s.axonFor(uid, account, hotkey)
		mg.Stakes[uid] = s.stakeFor(account)
	}
	return mg, nil
}

// BlocksSinceLastUpdate compares the current block height against the
// pallet's LastUpdate vector.
func (s *Substrate) BlocksSinceLastUpdate(ctx context.Context, uid int) (int, error) {
	header, err := s.api.RPC.Chain.GetHeaderLatest()
	if err != nil {
		return 0, fmt.Errorf("chain: fetch header: %w", err)
	}

	var lastUpdate []types.U64
	ok, err := s.getMapStorage("LastUpdate", s.encodedNetuid(), &lastUpdate)
	if err != nil {
		return 0, err
	}
	if !ok || uid >= len(lastUpdate) {
		return 0, fmt.Errorf("chain: no LastUpdate entry for uid %d", uid)
	}
	return int(uint64(header.Number) - uint64(lastUpdate[uid])), nil
}

// Tempo reads the subnet's weight cadence.
func (s *Substrate) Tempo(ctx context.Context) (int, error) {
	var tempo types.U16
	ok, err := s.getMapStorage("Tempo", s.encodedNetuid(), &tempo)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("chain: no tempo for netuid %d", s.netuid)
	}
	return int(tempo), nil
}

// SetWeights signs and submits a set_weights extrinsic.
func (s *Substrate) SetWeights(ctx context.Context, uids []int, weights []int) error {
	if len(uids) != len(weights) {
		return fmt.Errorf("chain: uids/weights length mismatch: %d vs %d", len(uids), len(weights))
	}

	dests := make([]types.U16, len(uids))
	vals := make([]types.U16, len(weights))
	for i := range uids {
		dests[i] = types.U16(uids[i])
		w := weights[i]
		if w < 0 {
			w = 0
		}
		if w > MaxWeight {
			w = MaxWeight
		}
		vals[i] = types.U16(w)
	}

	call, err := types.NewCall(s.meta, subtensorPallet+".set_weights",
		types.U16(s.netuid), dests, vals, types.U64(weightsVersionKey))
	if err != nil {
		return fmt.Errorf("chain: build set_weights call: %w", err)
	}

	ext := types.NewExtrinsic(call)
	if err = s.signExtrinsic(&ext); err != nil {
		return err
	}
	if _, err = s.api.RPC.Author.SubmitExtrinsic(ext); err != nil {
		return fmt.Errorf("chain: submit set_weights: %w", err)
	}

	log.Infof("submitted weights for %d uids on netuid %d", len(uids), s.netuid)
	return nil
}

// Neurons reads per-UID incentives, normalized to [0, 1].
func (s *Substrate) Neurons(ctx context.Context) ([]Neuron, error) {
	var incentives []types.U16
	ok, err := s.getMapStorage("Incentive", s.encodedNetuid(), &incentives)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	out := make([]Neuron, len(incentives))
	for uid, raw := range incentives {
		out[uid] = Neuron{UID: uid, Incentive: float64(raw) / float64(MaxWeight)}
	}
	return out, nil
}

func (s *Substrate) subnetSize() (int, error) {
	var size types.U16
	ok, err := s.getMapStorage("SubnetworkN", s.encodedNetuid(), &size)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("chain: netuid %d not registered", s.netuid)
	}
	return int(size), nil
}

func (s *Substrate) hotkeyAt(uid int) (types.AccountID, bool, error) {
	encodedUID, err := codec.Encode(types.U16(uid))
	if err != nil {
		return types.AccountID{}, false, fmt.Errorf("chain: encode uid: %w", err)
	}

	var account types.AccountID
	key, err := types.CreateStorageKey(s.meta, subtensorPallet, "Keys", s.encodedNetuid(), encodedUID)
	if err != nil {
		return types.AccountID{}, false, fmt.Errorf("chain: Keys storage key: %w", err)
	}
	ok, err := s.api.RPC.State.GetStorageLatest(key, &account)
	if err != nil {
		return types.AccountID{}, false, fmt.Errorf("chain: read Keys(%d, %d): %w", s.netuid, uid, err)
	}
	return account, ok, nil
}

// axonFor resolves a miner's serving endpoint; failures leave an empty axon
// so the miner is simply skipped during sampling.
func (s *Substrate) axonFor(uid int, account types.AccountID, hotkey string) AxonInfo {
	axon := AxonInfo{UID: uid, Hotkey: hotkey}

	var record axonRecord
	key, err := types.CreateStorageKey(s.meta, subtensorPallet, "Axons", s.encodedNetuid(), account[:])
	if err != nil {
		log.Debugf("chain: Axons storage key for uid %d: %v", uid, err)
		return axon
	}
	ok, err := s.api.RPC.State.GetStorageLatest(key, &record)
	if err != nil || !ok {
		return axon
	}

	axon.IP = decodeIP(record.IP, uint8(record.IPType))
	axon.Port = int(record.Port)
	return axon
}

func (s *Substrate) stakeFor(account types.AccountID) float64 {
	var rao types.U64
	key, err := types.CreateStorageKey(s.meta, subtensorPallet, "TotalHotkeyStake", account[:])
	if err != nil {
		return 0
	}
	ok, err := s.api.RPC.State.GetStorageLatest(key, &rao)
	if err != nil || !ok {
		return 0
	}
	// Stake is stored in rao; 1e9 rao per tao.
	return float64(rao) / 1e9
}

func (s *Substrate) getMapStorage(method string, mapKey []byte, target interface{}) (bool, error) {
	key, err := types.CreateStorageKey(s.meta, subtensorPallet, method, mapKey)
	if err != nil {
		return false, fmt.Errorf("chain: %s storage key: %w", method, err)
	}
	ok, err := s.api.RPC.State.GetStorageLatest(key, target)
	if err != nil {
		return false, fmt.Errorf("chain: read %s: %w", method, err)
	}
	return ok, nil
}

func (s *Substrate) encodedNetuid() []byte {
	encoded, _ := codec.Encode(types.U16(s.netuid))
	return encoded
}

// signExtrinsic runs the standard gsrpc signing flow: genesis hash, runtime
// version, account nonce, then sr25519 signature.
func (s *Substrate) signExtrinsic(ext *types.Extrinsic) error {
	genesisHash, err := s.api.RPC.Chain.GetBlockHash(0)
	if err != nil {
		return fmt.Errorf("chain: genesis hash: %w", err)
	}
	rv, err := s.api.RPC.State.GetRuntimeVersionLatest()
	if err != nil {
		return fmt.Errorf("chain: runtime version: %w", err)
	}

	accountKey, err := types.CreateStorageKey(s.meta, "System", "Account", s.keypair.PublicKey)
	if err != nil {
		return fmt.Errorf("chain: account storage key: %w", err)
	}
	var accountInfo types.AccountInfo
	ok, err := s.api.RPC.State.GetStorageLatest(accountKey, &accountInfo)
	if err != nil || !ok {
		return fmt.Errorf("chain: fetch account nonce: %w", err)
	}

	opts := types.SignatureOptions{
		BlockHash:          genesisHash,
		Era:                types.ExtrinsicEra{IsImmortalEra: true},
		GenesisHash:        genesisHash,
		Nonce:              types.NewUCompactFromUInt(uint64(accountInfo.Nonce)),
		SpecVersion:        rv.SpecVersion,
		Tip:                types.NewUCompactFromUInt(0),
		TransactionVersion: rv.TransactionVersion,
	}
	if err = ext.Sign(s.keypair, opts); err != nil {
		return fmt.Errorf("chain: sign extrinsic: %w", err)
	}
	return nil
}

// decodeIP converts the pallet's u128 address to a dotted/packed string.
func decodeIP(raw types.U128, ipType uint8) string {
	if raw.Int == nil || raw.Sign() == 0 {
		return ""
	}
	if ipType == 4 {
		v := raw.Uint64()
		ip := make(net.IP, 4)
		binary.BigEndian.PutUint32(ip, uint32(v))
		return ip.String()
	}

	bytes := raw.Bytes()
	ip := make(net.IP, 16)
	copy(ip[16-len(bytes):], bytes)
	return ip.String()
}
