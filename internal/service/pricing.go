package service

import "trustmeet/internal/models"

// roundPercent returns round(amount * percent / 100), halves rounded up.
func roundPercent(amount, percent int64) int64 {
	return (amount*percent + 50) / 100
}

// BundlePrice is the sum of both individual prices less the bundle discount.
func BundlePrice(photosPrice, contactPrice int64) int64 {
	return roundPercent(photosPrice+contactPrice, 100-models.BundleDiscountPercent)
}

// splitBundle attributes a bundle price to its two records so that the parts
// add up to the charged total.
func splitBundle(photosPrice, contactPrice int64) (photos, contact int64) {
	total := BundlePrice(photosPrice, contactPrice)
	photos = roundPercent(photosPrice, 100-models.BundleDiscountPercent)
	if photos > total {
		photos = total
	}
	return photos, total - photos
}

// DepositFor is the share of a booking price debited at creation.
func DepositFor(totalPrice int64) int64 {
	return roundPercent(totalPrice, models.BookingDepositPercent)
}
