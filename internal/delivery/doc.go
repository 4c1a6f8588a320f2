// Package delivery implements the client side of a download: submission
// validation, metadata lookup, format selection and the two-tier delivery
// of a resolved media URL (forced download first, navigation as fallback).
//
// All session changes go through Reduce so that each user action is applied
// atomically to a single State value.
package delivery
