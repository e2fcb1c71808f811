package bank_test

import (
	"context"
	"errors"
	"math"
	"os"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/vouch/internal/adapters/bank"
	"github.com/okian/vouch/internal/domain/ledger"
	"github.com/okian/vouch/pkg/logger"
)

// The vault is the treasury behind the ledger's stake escrow.
var _ ledger.Treasury = (*bank.InMemoryVault)(nil)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestVaultDeposits(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty vault", t, func() {
		v := bank.NewInMemoryVault()

		Convey("When funds are deposited", func() {
			So(v.Deposit(ctx, "alice", 500), ShouldBeNil)
			So(v.Deposit(ctx, "alice", 250), ShouldBeNil)

			Convey("Then the balance accumulates", func() {
				So(v.Balance(ctx, "alice"), ShouldEqual, 750)
			})

			Convey("And other accounts are unaffected", func() {
				So(v.Balance(ctx, "bob"), ShouldEqual, 0)
			})
		})

		Convey("When depositing to an empty account name", func() {
			err := v.Deposit(ctx, "", 100)
			So(errors.Is(err, bank.ErrInvalidAccount), ShouldBeTrue)
		})

		Convey("When a deposit would overflow the balance", func() {
			So(v.Deposit(ctx, "alice", math.MaxUint64), ShouldBeNil)
			err := v.Deposit(ctx, "alice", 1)

			Convey("Then the deposit is refused and the balance kept", func() {
				So(errors.Is(err, bank.ErrBalanceOverflow), ShouldBeTrue)
				So(v.Balance(ctx, "alice"), ShouldEqual, uint64(math.MaxUint64))
			})
		})
	})

	Convey("Given a vault with opening balances", t, func() {
		v := bank.NewInMemoryVault(bank.WithOpeningBalances(map[string]uint64{
			"alice": 1000,
			"bob":   2000,
		}))

		Convey("Then the seeds are immediately spendable", func() {
			So(v.Balance(context.Background(), "alice"), ShouldEqual, 1000)
			So(v.Balance(context.Background(), "bob"), ShouldEqual, 2000)
		})
	})
}

func TestVaultEscrow(t *testing.T) {
	ctx := context.Background()

	Convey("Given a funded participant", t, func() {
		v := bank.NewInMemoryVault(bank.WithOpeningBalances(map[string]uint64{
			"alice": 1000,
		}))

		Convey("When stake is collected into escrow", func() {
			So(v.Collect(ctx, "alice", 300), ShouldBeNil)

			Convey("Then the funds move from the balance to escrow", func() {
				So(v.Balance(ctx, "alice"), ShouldEqual, 700)
				So(v.EscrowBalance(ctx), ShouldEqual, 300)
			})

			Convey("And releasing pays the target account", func() {
				So(v.Release(ctx, "authority", 300), ShouldBeNil)
				So(v.EscrowBalance(ctx), ShouldEqual, 0)
				So(v.Balance(ctx, "authority"), ShouldEqual, 300)
			})

			Convey("And a partial release leaves the rest escrowed", func() {
				So(v.Release(ctx, "authority", 100), ShouldBeNil)
				So(v.EscrowBalance(ctx), ShouldEqual, 200)
			})
		})

		Convey("When collecting the exact balance", func() {
			So(v.Collect(ctx, "alice", 1000), ShouldBeNil)
			So(v.Balance(ctx, "alice"), ShouldEqual, 0)
		})

		Convey("When collecting more than the balance", func() {
			err := v.Collect(ctx, "alice", 1001)

			Convey("Then nothing moves", func() {
				So(errors.Is(err, bank.ErrInsufficientFunds), ShouldBeTrue)
				So(v.Balance(ctx, "alice"), ShouldEqual, 1000)
				So(v.EscrowBalance(ctx), ShouldEqual, 0)
			})
		})

		Convey("When collecting from an unknown account", func() {
			err := v.Collect(ctx, "ghost", 1)
			So(errors.Is(err, bank.ErrInsufficientFunds), ShouldBeTrue)
		})

		Convey("When collecting from an empty account name", func() {
			err := v.Collect(ctx, "", 1)
			So(errors.Is(err, bank.ErrInvalidAccount), ShouldBeTrue)
		})

		Convey("When releasing more than escrow holds", func() {
			So(v.Collect(ctx, "alice", 100), ShouldBeNil)
			err := v.Release(ctx, "authority", 200)

			Convey("Then the escrow pool is untouched", func() {
				So(errors.Is(err, bank.ErrEscrowShortfall), ShouldBeTrue)
				So(v.EscrowBalance(ctx), ShouldEqual, 100)
				So(v.Balance(ctx, "authority"), ShouldEqual, 0)
			})
		})

		Convey("When releasing to an empty account name", func() {
			err := v.Release(ctx, "", 1)
			So(errors.Is(err, bank.ErrInvalidAccount), ShouldBeTrue)
		})
	})
}

func TestVaultConservation(t *testing.T) {
	ctx := context.Background()

	Convey("Given a set of funded accounts", t, func() {
		accounts := []string{"a", "b", "c"}
		seeds := map[string]uint64{"a": 1000, "b": 1000, "c": 1000}
		v := bank.NewInMemoryVault(bank.WithOpeningBalances(seeds))

		total := func() uint64 {
			sum := v.EscrowBalance(ctx)
			for _, acct := range accounts {
				sum += v.Balance(ctx, acct)
			}
			sum += v.Balance(ctx, "authority")
			return sum
		}

		Convey("When stake churns through collect and release", func() {
			So(v.Collect(ctx, "a", 400), ShouldBeNil)
			So(v.Collect(ctx, "b", 250), ShouldBeNil)
			So(v.Release(ctx, "authority", 400), ShouldBeNil)
			So(v.Collect(ctx, "c", 100), ShouldBeNil)
			So(v.Release(ctx, "authority", 350), ShouldBeNil)

			Convey("Then the total supply is conserved", func() {
				So(total(), ShouldEqual, 3000)
				So(v.EscrowBalance(ctx), ShouldEqual, 0)
				So(v.Balance(ctx, "authority"), ShouldEqual, 750)
			})
		})
	})
}

func TestVaultConcurrency(t *testing.T) {
	ctx := context.Background()

	Convey("Given concurrent depositors and collectors", t, func() {
		v := bank.NewInMemoryVault(bank.WithOpeningBalances(map[string]uint64{
			"shared": 100000,
		}))

		Convey("When they hammer the same account", func() {
			const goroutines = 8
			const perGoroutine = 100

			var wg sync.WaitGroup
			for i := 0; i < goroutines; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < perGoroutine; j++ {
						_ = v.Deposit(ctx, "shared", 10)
						_ = v.Collect(ctx, "shared", 10)
					}
				}()
			}
			wg.Wait()

			Convey("Then balances and escrow stay consistent", func() {
				collected := uint64(goroutines * perGoroutine * 10)
				So(v.EscrowBalance(ctx), ShouldEqual, collected)
				So(v.Balance(ctx, "shared"), ShouldEqual, 100000)
			})
		})
	})
}
