package protocol

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/yimingWOW/clmmctl/pkg"
	"github.com/yimingWOW/clmmctl/pkg/quote"
	"github.com/yimingWOW/clmmctl/pkg/rangemath"
	"github.com/yimingWOW/clmmctl/pkg/sol"
	"lukechampine.com/uint128"
)

// New 根据名称创建协议实例, 入口处只调用一次
func New(name pkg.ProtocolName, solClient *sol.Client) (pkg.Protocol, error) {
	switch name {
	case pkg.ProtocolNameRaydiumClmm:
		return NewRaydiumClmm(solClient), nil
	case pkg.ProtocolNameOrcaWhirlpool:
		return NewOrcaWhirlpool(solClient), nil
	case pkg.ProtocolNameMeteoraDlmm:
		return NewMeteoraDlmm(solClient), nil
	}
	return nil, pkg.InputError("dex", "unknown %q, want one of %v", name, pkg.ProtocolNames)
}

// poolLayout 是 getProgramAccounts 过滤器需要的布局信息
type poolLayout interface {
	Span() uint64
	Offset(field string) uint64
}

// getPoolAccountsByTokenPair 查询 mintA/mintB 字段分别等于 baseMint/quoteMint 的池子账户
func getPoolAccountsByTokenPair(ctx context.Context, solClient *sol.Client, programID solana.PublicKey, layout poolLayout, fieldA, fieldB, baseMint, quoteMint string) (rpc.GetProgramAccountsResult, error) {
	if solClient == nil {
		return nil, fmt.Errorf("pool discovery needs an rpc client")
	}
	baseKey, err := solana.PublicKeyFromBase58(baseMint)
	if err != nil {
		return nil, pkg.InputError("mint-a", "invalid base mint address: %v", err)
	}
	quoteKey, err := solana.PublicKeyFromBase58(quoteMint)
	if err != nil {
		return nil, pkg.InputError("mint-b", "invalid quote mint address: %v", err)
	}

	result, err := solClient.RpcClient.GetProgramAccountsWithOpts(ctx, programID, &rpc.GetProgramAccountsOpts{
		Commitment: solClient.Commitment,
		Filters: []rpc.RPCFilter{
			{
				DataSize: layout.Span(),
			},
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: layout.Offset(fieldA),
					Bytes:  baseKey.Bytes(),
				},
			},
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: layout.Offset(fieldB),
					Bytes:  quoteKey.Bytes(),
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get pools: %w", err)
	}
	return result, nil
}

// fetchPoolsByPair 查询两种方向的池子并逐个解析, 解析失败的账户被跳过
func fetchPoolsByPair(ctx context.Context, p pkg.Protocol, solClient *sol.Client, layout poolLayout, fieldA, fieldB, baseMint, quoteMint string) ([]pkg.Pool, error) {
	accounts := make([]*rpc.KeyedAccount, 0)

	programAccounts, err := getPoolAccountsByTokenPair(ctx, solClient, p.ProgramID(), layout, fieldA, fieldB, baseMint, quoteMint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pools with base token %s: %w", baseMint, err)
	}
	accounts = append(accounts, programAccounts...)

	programAccounts, err = getPoolAccountsByTokenPair(ctx, solClient, p.ProgramID(), layout, fieldA, fieldB, quoteMint, baseMint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pools with base token %s: %w", quoteMint, err)
	}
	accounts = append(accounts, programAccounts...)

	res := make([]pkg.Pool, 0, len(accounts))
	for _, v := range accounts {
		pool, err := p.DecodePool(&pkg.Account{
			Address: v.Pubkey,
			Owner:   v.Account.Owner,
			Data:    v.Account.Data.GetBinary(),
		})
		if err != nil {
			continue
		}
		res = append(res, pool)
	}
	return res, nil
}

// checkTickBounds 在读取任何账户之前检查显式给出的 tick 区间
func checkTickBounds(req *pkg.Request, minTick, maxTick int32) error {
	if req.Op != pkg.OpOpen || req.Range.ByPrice {
		return nil
	}
	if req.Range.Lower < minTick || req.Range.Upper > maxTick {
		return pkg.InputError("range", "[%d, %d] is outside [%d, %d]", req.Range.Lower, req.Range.Upper, minTick, maxTick)
	}
	return nil
}

// resolveTickRange 把区间换算成对齐的 tick: 价格区间向外取整, 显式 tick 必须已对齐
func resolveTickRange(st pkg.PoolState, spec pkg.RangeSpec, minTick, maxTick int32) (int32, int32, error) {
	if st.Granularity == 0 {
		return 0, 0, pkg.InputError("range", "pool %s has zero tick spacing", st.Address)
	}
	lower, upper := spec.Lower, spec.Upper
	if spec.ByPrice {
		lo, err := rangemath.PriceToIndex(spec.PriceMin, rangemath.TickBase)
		if err != nil {
			return 0, 0, err
		}
		hi, err := rangemath.PriceToIndex(spec.PriceMax, rangemath.TickBase)
		if err != nil {
			return 0, 0, err
		}
		lower = rangemath.SnapDown(lo, st.Granularity)
		upper = rangemath.SnapUp(hi, st.Granularity)
	}
	if err := rangemath.CheckRange(lower, upper, st.Granularity, minTick, maxTick); err != nil {
		return 0, 0, err
	}
	return lower, upper, nil
}

// quoteTickRange 用池子当前价格为 [lower, upper] 报价
func quoteTickRange(st pkg.PoolState, lower, upper int32, amount0, amount1 uint64) (quote.LiquidityQuote, error) {
	sqrtLower, err := quote.SqrtPriceX64FromTick(lower)
	if err != nil {
		return quote.LiquidityQuote{}, fmt.Errorf("tick %d: %w", lower, err)
	}
	sqrtUpper, err := quote.SqrtPriceX64FromTick(upper)
	if err != nil {
		return quote.LiquidityQuote{}, fmt.Errorf("tick %d: %w", upper, err)
	}
	q, err := quote.Quote(quote.FromUint128(st.SqrtPriceX64), sqrtLower, sqrtUpper, amount0, amount1)
	if err != nil {
		return quote.LiquidityQuote{}, fmt.Errorf("quote pool %s range [%d, %d]: %w", st.Address, lower, upper, err)
	}
	return q, nil
}

// removeLiquidity 决定要移除的 liquidity: 0 表示全部
func removeLiquidity(req *pkg.Request, pos pkg.PositionState) (uint128.Uint128, error) {
	liquidity := req.Liquidity
	if liquidity.IsZero() {
		liquidity = pos.Liquidity
	}
	if liquidity.Cmp(pos.Liquidity) > 0 {
		return uint128.Zero, pkg.InputError("liquidity", "%s exceeds position liquidity %s", liquidity, pos.Liquidity)
	}
	if req.Close && !liquidity.Equals(pos.Liquidity) {
		return uint128.Zero, pkg.InputError("close", "closing requires removing all liquidity (%s), got %s", pos.Liquidity, liquidity)
	}
	if liquidity.IsZero() && !req.Close && pos.FeesOwedA == 0 && pos.FeesOwedB == 0 {
		return uint128.Zero, pkg.InputError("position", "%s has no liquidity; pass --close to close it", pos.Address)
	}
	return liquidity, nil
}

func tokenFor(tokens pkg.TokenAccounts, mint solana.PublicKey) (pkg.TokenAccount, error) {
	ta, ok := tokens[mint]
	if !ok {
		return pkg.TokenAccount{}, fmt.Errorf("no token account resolved for mint %s", mint)
	}
	return ta, nil
}

// swapSides 按方向返回输入 / 输出一侧的 mint 和 vault
func swapSides(st pkg.PoolState, aToB bool) (inMint, outMint, inVault, outVault solana.PublicKey) {
	if aToB {
		return st.MintA, st.MintB, st.VaultA, st.VaultB
	}
	return st.MintB, st.MintA, st.VaultB, st.VaultA
}

// nftTokenAccount 是仓位 NFT 所在的 ATA, 两个 tick 后端都用 legacy token 程序铸造 NFT
func nftTokenAccount(owner, nftMint solana.PublicKey) solana.PublicKey {
	return sol.FindAssociatedTokenAddress(owner, nftMint, sol.TokenProgramID)
}

func newSigner() (solana.PrivateKey, error) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate keypair: %w", err)
	}
	return key, nil
}
