package pkg

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

type ProtocolName string

const (
	ProtocolNameRaydiumClmm   ProtocolName = "raydium"
	ProtocolNameOrcaWhirlpool ProtocolName = "orca"
	ProtocolNameMeteoraDlmm   ProtocolName = "meteora"
)

// ProtocolNames 按 CLI 中的顺序列出支持的后端
var ProtocolNames = []ProtocolName{
	ProtocolNameRaydiumClmm,
	ProtocolNameOrcaWhirlpool,
	ProtocolNameMeteoraDlmm,
}

// Account 是一次读取到的链上账户: 原始数据加上所属程序
type Account struct {
	Address solana.PublicKey
	Owner   solana.PublicKey
	Data    []byte
	Slot    uint64
}

// AccountReader 读取单个账户, 账户不存在时返回 ErrAccountNotFound
type AccountReader interface {
	GetAccount(ctx context.Context, address solana.PublicKey) (*Account, error)
}

// PoolState 是各后端池子的统一视图
type PoolState struct {
	Address      solana.PublicKey
	ProgramID    solana.PublicKey
	MintA        solana.PublicKey
	MintB        solana.PublicKey
	VaultA       solana.PublicKey
	VaultB       solana.PublicKey
	Granularity  uint16 // tick spacing or bin step
	CurrentIndex int32
	SqrtPriceX64 uint128.Uint128 // zero for bin based pools
	Liquidity    uint128.Uint128
}

// PositionState 是各后端仓位的统一视图
type PositionState struct {
	Address    solana.PublicKey // account holding the position record
	Identifier solana.PublicKey // NFT mint, or Address for account based positions
	Pool       solana.PublicKey
	Lower      int32
	Upper      int32
	Liquidity  uint128.Uint128
	FeesOwedA  uint64
	FeesOwedB  uint64
}

// Pool 由各后端的池子布局实现
type Pool interface {
	ProtocolName() ProtocolName
	GetProgramID() solana.PublicKey
	GetID() string
	GetTokens() (baseMint, quoteMint string)
	State() PoolState
}

// Position 由各后端的仓位布局实现
type Position interface {
	ProtocolName() ProtocolName
	State() PositionState
}

type Operation int

const (
	OpOpen Operation = iota
	OpAdd
	OpRemove
	OpSwap
)

func (op Operation) String() string {
	switch op {
	case OpOpen:
		return "open"
	case OpAdd:
		return "add"
	case OpRemove:
		return "remove"
	case OpSwap:
		return "swap"
	}
	return "unknown"
}

// RangeSpec 描述用户给出的区间: 直接给 index, 或者给价格
type RangeSpec struct {
	Lower    int32
	Upper    int32
	ByPrice  bool
	PriceMin float64
	PriceMax float64
}

// Request 是一次操作的全部输入
type Request struct {
	Op    Operation
	Owner solana.PrivateKey

	Pool     solana.PublicKey // open / swap
	Position solana.PublicKey // add / remove: NFT mint or position account
	Range    RangeSpec

	Amount0 uint64
	Amount1 uint64

	Liquidity uint128.Uint128 // remove: zero means everything
	MinOut0   uint64
	MinOut1   uint64
	Close     bool

	SwapAmountIn   uint64
	SwapMinOut     uint64
	AToB           bool
	SqrtPriceLimit uint128.Uint128

	UnwrapSOL bool
}

// Snapshot 是一次操作所依据的已解码链上状态
type Snapshot struct {
	Pool     Pool
	Position Position // nil for open and swap
	Lower    int32    // resolved range for open, position range otherwise
	Upper    int32
}

// Derived 是后端为一次操作推导出的地址集合
type Derived struct {
	Position         solana.PublicKey
	PositionBump     uint8
	PositionMint     solana.PublicKey // NFT bound to the position, zero for account based positions
	ProtocolPosition solana.PublicKey
	Metadata         solana.PublicKey
	Oracle           solana.PublicKey
	EventAuthority   solana.PublicKey
	BitmapExtension  solana.PublicKey

	// PositionTokenAccount holds the position NFT; it must already exist for add and remove.
	PositionTokenAccount solana.PublicKey

	// RangeGroups are tick arrays or bin arrays in the order the core instruction expects them.
	RangeGroups      []solana.PublicKey
	RangeGroupStarts []int64

	// Mints that need an owner token account, in the order they are ensured.
	Mints []solana.PublicKey

	// Signers created for this operation (position mint or position account).
	Signers []solana.PrivateKey
}

// TokenAccount 是 owner 在某个 mint 下的关联代币账户
type TokenAccount struct {
	Mint    solana.PublicKey
	Address solana.PublicKey
	Program solana.PublicKey
}

type TokenAccounts map[solana.PublicKey]TokenAccount

// Protocol 每个支持的 AMM 程序实现一次
type Protocol interface {
	Name() ProtocolName
	ProgramID() solana.PublicKey

	// ValidateRequest checks backend specific input before any network read.
	ValidateRequest(req *Request) error
	// PositionAddress maps the user facing position identifier to the account that stores the position.
	PositionAddress(id solana.PublicKey) solana.PublicKey

	DecodePool(acct *Account) (Pool, error)
	DecodePosition(acct *Account) (Position, error)

	// ResolveRange turns a RangeSpec into aligned indices for the given pool.
	ResolveRange(pool Pool, spec RangeSpec) (lower, upper int32, err error)
	DeriveAddresses(req *Request, snap *Snapshot) (*Derived, error)
	BuildCoreInstructions(req *Request, snap *Snapshot, derived *Derived, tokens TokenAccounts) ([]solana.Instruction, error)

	FetchPoolsByPair(ctx context.Context, baseMint, quoteMint string) ([]Pool, error)
}
