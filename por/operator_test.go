package por

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hashpool/snarkOS-1/node"
)

func testAddress(c byte) Address {
	return Address(addressPrefix + strings.Repeat(string(addressCharset[c%32]), addressLength-len(addressPrefix)))
}

func TestToAddress(t *testing.T) {
	valid := string(testAddress(3))
	addr, err := ToAddress(valid)
	require.NoError(t, err)
	require.Equal(t, valid, addr.String())

	_, err = ToAddress("")
	require.Error(t, err)
	_, err = ToAddress("bleo1" + strings.Repeat("q", 58))
	require.Error(t, err)
	_, err = ToAddress(addressPrefix + "q")
	require.Error(t, err)
	// right shape, illegal character ('b' is not in the charset)
	_, err = ToAddress(addressPrefix + strings.Repeat("b", addressLength-len(addressPrefix)))
	require.Error(t, err)
}

func TestShareLedger(t *testing.T) {
	op := NewOperator(testAddress(0), node.NewRouter("operator", 16))
	require.Equal(t, testAddress(0), op.Address())

	alice := testAddress(1)
	bob := testAddress(2)

	op.creditShare(1, alice, 3)
	op.creditShare(1, bob, 2)
	op.creditShare(2, alice, 5)

	require.Equal(t, uint64(10), op.GetShares())
	require.Equal(t, uint64(8), op.GetSharesForProver(alice))
	require.Equal(t, uint64(2), op.GetSharesForProver(bob))

	// a prover with no credited rounds has zero shares, not an error
	require.Equal(t, uint64(0), op.GetSharesForProver(testAddress(9)))

	require.ElementsMatch(t, []string{alice.String(), bob.String()}, op.GetProvers())
}

func TestOperatorRun(t *testing.T) {
	router := node.NewRouter("operator", 16)
	op := NewOperator(testAddress(0), router)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go op.Run(ctx)

	carol := testAddress(4)
	router.Send(ctx, RegisterProverRequest{Prover: carol})
	router.Send(ctx, CreditShareRequest{Round: 7, Prover: carol, Shares: 4})
	router.Send(ctx, CreditShareRequest{Round: 8, Prover: carol, Shares: 1})

	require.Eventually(t, func() bool {
		return op.GetSharesForProver(carol) == 5
	}, time.Second, 10*time.Millisecond)
	require.Contains(t, op.GetProvers(), carol.String())
}
