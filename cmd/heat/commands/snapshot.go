package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/watchheat/internal/contracts"
)

// snapshotCmd represents the snapshot command
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Inspect stored observations",
}

var (
	snapshotShowCmd = &cobra.Command{
		Use:   "show <brand/reference>",
		Short: "Print one item's observations",
		Long: `Prints the stored daily observations of one item, oldest first.

Example:
  go run ./cmd/heat snapshot show Rolex/126610LV
  go run ./cmd/heat snapshot show "Patek Philippe/5711/1A-011" --from 2025-01-01`,
		Args: cobra.ExactArgs(1),
		RunE: showSnapshots,
	}

	snapshotItemsCmd = &cobra.Command{
		Use:   "items",
		Short: "List items with stored observations",
		RunE:  listSnapshotItems,
	}
)

var (
	snapshotFrom string
	snapshotTo   string
)

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.AddCommand(snapshotShowCmd, snapshotItemsCmd)

	snapshotShowCmd.Flags().StringVar(&snapshotFrom, "from", "", "first date (default 90 days before --to)")
	snapshotShowCmd.Flags().StringVar(&snapshotTo, "to", "", "last date (default today)")
}

func showSnapshots(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	to, err := parseDate(snapshotTo)
	if err != nil {
		return err
	}
	from := to.AddDate(0, 0, -90)
	if snapshotFrom != "" {
		if from, err = contracts.ParseDay(snapshotFrom); err != nil {
			return err
		}
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	item := contracts.ItemFromID(args[0])
	observations, err := a.store.Range(ctx, item.ID(), from, to)
	if err != nil {
		return err
	}

	PrintHeader(item.ID(),
		fmt.Sprintf("Period : %s ~ %s", from.Format(contracts.DateLayout), to.Format(contracts.DateLayout)),
		fmt.Sprintf("Count  : %d", len(observations)))

	fmt.Printf("  %-10s %12s %9s %8s %8s\n", "DATE", "PRICE", "LISTINGS", "DOM", "DEMAND")
	for _, o := range observations {
		fmt.Printf("  %-10s %12.2f %9s %8s %8s\n",
			o.Date.Format(contracts.DateLayout),
			o.Price,
			fmtInt(o.Listings),
			fmtFloat(o.DaysOnMarket, "%.1f"),
			fmtInt(o.DemandCount))
	}
	PrintSeparator()
	return nil
}

func listSnapshotItems(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	ids, err := a.store.Items(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}
