package objects

// NewS3StoreWith builds an S3Store over caller-provided API clients.
var NewS3StoreWith = newS3Store
