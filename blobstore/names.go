package blobstore

// CurrentName is the blob naming the live manifest.
const CurrentName = "CURRENT"
