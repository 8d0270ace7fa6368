package commands

import (
	"context"
	"fmt"
)

// ListAlbums prints the names of the user's own collections, one per line.
// Collections shared by other users are not listed, they can never be
// upload targets.
func ListAlbums(ctx context.Context, client VaultClient) error {
	cols, err := client.ListCollections(ctx)
	if err != nil {
		return err
	}

	owned := 0
	for _, c := range cols {
		if !c.Owned {
			continue
		}
		fmt.Println(c.Name)
		owned++
	}
	if owned == 0 {
		fmt.Println("No albums yet.")
	}
	return nil
}
