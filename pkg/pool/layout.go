// Package pool 存放三个后端共用的账户布局校验
package pool

import (
	"bytes"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/yimingWOW/clmmctl/pkg"
)

// DiscriminatorSize is the length of the Anchor account / instruction discriminator.
const DiscriminatorSize = 8

// CheckAccount 校验账户的长度, 所属程序和 Anchor discriminator
func CheckAccount(kind string, acct *pkg.Account, programID solana.PublicKey, size int, discriminator []byte) error {
	if acct == nil {
		return &pkg.DecodeError{Kind: kind, Reason: "no account"}
	}
	if len(acct.Data) != size {
		return &pkg.DecodeError{Kind: kind, Address: acct.Address,
			Reason: fmt.Sprintf("data length %d, want %d", len(acct.Data), size)}
	}
	return checkOwnerAndDiscriminator(kind, acct, programID, discriminator)
}

// CheckAccountSizes is CheckAccount for records with more than one accepted size.
// It returns the index of the matching size.
func CheckAccountSizes(kind string, acct *pkg.Account, programID solana.PublicKey, sizes []int, discriminators [][]byte) (int, error) {
	if acct == nil {
		return -1, &pkg.DecodeError{Kind: kind, Reason: "no account"}
	}
	for i, size := range sizes {
		if len(acct.Data) == size {
			return i, checkOwnerAndDiscriminator(kind, acct, programID, discriminators[i])
		}
	}
	return -1, &pkg.DecodeError{Kind: kind, Address: acct.Address,
		Reason: fmt.Sprintf("data length %d, want one of %v", len(acct.Data), sizes)}
}

func checkOwnerAndDiscriminator(kind string, acct *pkg.Account, programID solana.PublicKey, discriminator []byte) error {
	if !acct.Owner.Equals(programID) {
		return &pkg.DecodeError{Kind: kind, Address: acct.Address,
			Reason: fmt.Sprintf("owned by %s, want %s", acct.Owner, programID)}
	}
	if !bytes.Equal(acct.Data[:DiscriminatorSize], discriminator) {
		return &pkg.DecodeError{Kind: kind, Address: acct.Address,
			Reason: fmt.Sprintf("discriminator %v, want %v", acct.Data[:DiscriminatorSize], discriminator)}
	}
	return nil
}

// MustFindProgramAddress panics when no bump produces an off-curve address; well formed seeds always succeed.
func MustFindProgramAddress(seeds [][]byte, programID solana.PublicKey) (solana.PublicKey, uint8) {
	addr, bump, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		panic(fmt.Sprintf("derive program address under %s: %v", programID, err))
	}
	return addr, bump
}
