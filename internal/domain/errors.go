package domain

import "errors"

var ErrRecordNotFound = errors.New("Record not found")
var ErrInsufficientFunds = errors.New("Insufficient funds")
var ErrSelfExecutionForbidden = errors.New("Requester cannot execute own payment")
var ErrInvalidState = errors.New("Payment is not in a valid state for this operation")
var ErrOtpInvalid = errors.New("OTP code is invalid")
var ErrOtpExpired = errors.New("OTP code has expired")
var ErrOtpAlreadyUsed = errors.New("OTP code has already been used")
var ErrLockTimeout = errors.New("Timed out waiting for fund lock")
var ErrAlreadyResolved = errors.New("Variance has already been resolved")
var ErrNotApproved = errors.New("Requisition is not fully approved")
var ErrNotAuthorized = errors.New("User is not authorized for this action")
var ErrFundInactive = errors.New("Fund is not active")
