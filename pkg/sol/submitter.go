package sol

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/yimingWOW/clmmctl/pkg"
	"github.com/yimingWOW/clmmctl/pkg/metrics"
	"go.uber.org/zap"
)

// RPC is the part of rpc.Client the submitter needs.
type RPC interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SimulateTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts *rpc.SimulateTransactionOpts) (*rpc.SimulateTransactionResponse, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

type SubmitResult struct {
	Signature     solana.Signature
	Logs          []string
	UnitsConsumed uint64
	Sent          bool
	Confirmed     bool
}

// Submitter 先模拟再发送, 模拟失败时不会发送
type Submitter struct {
	rpc            RPC
	commitment     rpc.CommitmentType
	confirmTimeout time.Duration
	pollInterval   time.Duration
	log            *zap.Logger
	metrics        *metrics.Metrics
}

type SubmitterOption func(*Submitter)

func WithConfirmTimeout(d time.Duration) SubmitterOption {
	return func(s *Submitter) { s.confirmTimeout = d }
}

func WithPollInterval(d time.Duration) SubmitterOption {
	return func(s *Submitter) { s.pollInterval = d }
}

func WithSubmitterMetrics(m *metrics.Metrics) SubmitterOption {
	return func(s *Submitter) { s.metrics = m }
}

func NewSubmitter(client RPC, commitment rpc.CommitmentType, log *zap.Logger, opts ...SubmitterOption) *Submitter {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Submitter{
		rpc:            client,
		commitment:     commitment,
		confirmTimeout: 60 * time.Second,
		pollInterval:   2 * time.Second,
		log:            log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit signs the instructions, simulates them and, unless dryRun, sends and waits for confirmation.
func (s *Submitter) Submit(ctx context.Context, instructions []solana.Instruction, payer solana.PublicKey, signers []solana.PrivateKey, dryRun bool) (*SubmitResult, error) {
	bh, err := s.rpc.GetLatestBlockhash(ctx, s.commitment)
	if err != nil {
		return nil, fmt.Errorf("failed to get blockhash: %w", err)
	}
	tx, err := solana.NewTransaction(instructions, bh.Value.Blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction: %w", err)
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		for i := range signers {
			if signers[i].PublicKey().Equals(key) {
				return &signers[i]
			}
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	res := &SubmitResult{Signature: tx.Signatures[0]}
	sim, err := s.rpc.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
		SigVerify:  true,
		Commitment: s.commitment,
	})
	if err != nil {
		s.metrics.ObserveSimulation(err)
		return nil, fmt.Errorf("failed to simulate transaction: %w", err)
	}
	if sim.Value != nil {
		res.Logs = sim.Value.Logs
		if sim.Value.UnitsConsumed != nil {
			res.UnitsConsumed = *sim.Value.UnitsConsumed
		}
	}
	s.log.Info("simulation finished",
		zap.Uint64("units_consumed", res.UnitsConsumed),
		zap.Strings("logs", res.Logs),
	)
	if sim.Value != nil && sim.Value.Err != nil {
		simErr := &pkg.SimulationError{Err: sim.Value.Err, Logs: sim.Value.Logs}
		s.metrics.ObserveSimulation(simErr)
		return res, simErr
	}
	s.metrics.ObserveSimulation(nil)
	if dryRun {
		return res, nil
	}

	sig, err := s.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: s.commitment,
	})
	s.metrics.ObserveSubmission(err)
	if err != nil {
		return res, fmt.Errorf("failed to send transaction: %w", err)
	}
	res.Signature = sig
	res.Sent = true
	s.log.Info("transaction sent", zap.Stringer("signature", sig))

	if err := s.waitConfirmed(ctx, sig); err != nil {
		return res, err
	}
	res.Confirmed = true
	return res, nil
}

func (s *Submitter) waitConfirmed(ctx context.Context, sig solana.Signature) error {
	ctx, cancel := context.WithTimeout(ctx, s.confirmTimeout)
	defer cancel()
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		out, err := s.rpc.GetSignatureStatuses(ctx, false, sig)
		if err == nil && out != nil && len(out.Value) > 0 && out.Value[0] != nil {
			st := out.Value[0]
			if st.Err != nil {
				return fmt.Errorf("transaction %s failed: %v", sig, st.Err)
			}
			if st.ConfirmationStatus == rpc.ConfirmationStatusConfirmed || st.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("transaction %s not confirmed: %w", sig, ctx.Err())
		case <-ticker.C:
		}
	}
}
