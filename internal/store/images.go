package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
)

// BuyableImageURL is the API path a buyable's image is served from.
func BuyableImageURL(id int64) string {
	return "/buyable/buyable/" + strconv.FormatInt(id, 10) + "/image"
}

// SetBuyableImage stores a buyable's image and points its image_url at it.
// It reports whether the buyable exists.
func SetBuyableImage(ctx context.Context, db *sql.DB, id int64, image []byte, mime string) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE buyable_buyable SET image = ?, image_mime = ?, image_url = ?
		 WHERE buyable_id = ?`,
		image, mime, BuyableImageURL(id), id,
	)
	if err != nil {
		return false, fmt.Errorf("setting buyable image: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("setting buyable image: %w", err)
	}
	return n > 0, nil
}

// GetBuyableImage returns a buyable's image data and MIME type.
func GetBuyableImage(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM buyable_buyable WHERE buyable_id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting buyable image: %w", err)
	}
	return image, mime.String, nil
}
