package sol

import (
	"context"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/yimingWOW/clmmctl/pkg"
)

var (
	WSOL                     = solana.WrappedSol
	TokenProgramID           = solana.TokenProgramID
	Token2022ProgramID       = solana.Token2022ProgramID
	AssociatedTokenProgramID = solana.SPLAssociatedTokenAccountProgramID
	MetadataProgramID        = solana.TokenMetadataProgramID
	MemoProgramID            = solana.MemoProgramID
)

// TokenAccountSize is the base SPL token account length; Token-2022 accounts append extensions after it.
const TokenAccountSize = 165

// TokenPrograms 记录每个 mint 所属的 token 程序, 同一次操作内每个 mint 只读取一次
type TokenPrograms struct {
	reader  pkg.AccountReader
	cache   map[solana.PublicKey]solana.PublicKey
	lookups int
}

func NewTokenPrograms(reader pkg.AccountReader) *TokenPrograms {
	return &TokenPrograms{
		reader: reader,
		cache:  make(map[solana.PublicKey]solana.PublicKey),
	}
}

// ProgramOf returns the legacy or Token-2022 program depending on who owns the mint account.
func (t *TokenPrograms) ProgramOf(ctx context.Context, mint solana.PublicKey) (solana.PublicKey, error) {
	if p, ok := t.cache[mint]; ok {
		return p, nil
	}
	t.lookups++
	acct, err := t.reader.GetAccount(ctx, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to read mint %s: %w", mint, err)
	}
	switch {
	case acct.Owner.Equals(TokenProgramID), acct.Owner.Equals(Token2022ProgramID):
		t.cache[mint] = acct.Owner
		return acct.Owner, nil
	}
	return solana.PublicKey{}, fmt.Errorf("mint %s is owned by %s, not a token program", mint, acct.Owner)
}

// Lookups reports how many mint accounts were actually read.
func (t *TokenPrograms) Lookups() int {
	return t.lookups
}

// FindAssociatedTokenAddress derives the ATA of owner for mint under the given token program.
func FindAssociatedTokenAddress(owner, mint, tokenProgram solana.PublicKey) solana.PublicKey {
	ata, _, err := solana.FindProgramAddress([][]byte{
		owner[:],
		tokenProgram[:],
		mint[:],
	}, AssociatedTokenProgramID)
	if err != nil {
		panic(fmt.Sprintf("derive associated token account for %s/%s: %v", owner, mint, err))
	}
	return ata
}

// NewCreateAssociatedTokenAccountInstruction builds the non-idempotent Create instruction.
func NewCreateAssociatedTokenAccountInstruction(payer, owner, mint, tokenProgram solana.PublicKey) solana.Instruction {
	ata := FindAssociatedTokenAddress(owner, mint, tokenProgram)
	return solana.NewInstruction(
		AssociatedTokenProgramID,
		solana.AccountMetaSlice{
			solana.Meta(payer).WRITE().SIGNER(),
			solana.Meta(ata).WRITE(),
			solana.Meta(owner),
			solana.Meta(mint),
			solana.Meta(solana.SystemProgramID),
			solana.Meta(tokenProgram),
		},
		[]byte{0},
	)
}

// EnsureAssociatedTokenAccount 返回 owner 的 ATA; 账户不存在时附带一条创建指令
func EnsureAssociatedTokenAccount(ctx context.Context, reader pkg.AccountReader, payer, owner, mint, tokenProgram solana.PublicKey) (solana.PublicKey, []solana.Instruction, error) {
	ata := FindAssociatedTokenAddress(owner, mint, tokenProgram)
	_, err := reader.GetAccount(ctx, ata)
	switch {
	case err == nil:
		return ata, nil, nil
	case errors.Is(err, pkg.ErrAccountNotFound):
		return ata, []solana.Instruction{NewCreateAssociatedTokenAccountInstruction(payer, owner, mint, tokenProgram)}, nil
	}
	return solana.PublicKey{}, nil, fmt.Errorf("failed to check token account %s for mint %s: %w", ata, mint, err)
}

// DecodeTokenAccount reads the base layout of an SPL or Token-2022 account.
func DecodeTokenAccount(data []byte) (*token.Account, error) {
	if len(data) < TokenAccountSize {
		return nil, fmt.Errorf("token account data too short: %d bytes", len(data))
	}
	var acc token.Account
	if err := bin.NewBinDecoder(data[:TokenAccountSize]).Decode(&acc); err != nil {
		return nil, fmt.Errorf("failed to decode token account: %w", err)
	}
	return &acc, nil
}

// NewCloseAccountInstruction closes a WSOL account and returns its lamports to owner.
func NewCloseAccountInstruction(account, owner solana.PublicKey) solana.Instruction {
	return token.NewCloseAccountInstruction(account, owner, owner, nil).Build()
}

// FindMetadataAddress derives the Metaplex metadata account of a mint.
func FindMetadataAddress(mint solana.PublicKey) solana.PublicKey {
	addr, _, err := solana.FindProgramAddress([][]byte{
		[]byte("metadata"),
		MetadataProgramID[:],
		mint[:],
	}, MetadataProgramID)
	if err != nil {
		panic(fmt.Sprintf("derive metadata address for %s: %v", mint, err))
	}
	return addr
}
