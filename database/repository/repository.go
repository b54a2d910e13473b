package repository

import (
	agreementRepo "rentline/database/repository/agreement"
	bookingRepo "rentline/database/repository/booking"
	recordsRepo "rentline/database/repository/records"
	vehicleRepo "rentline/database/repository/vehicle"
)

// Re-export the BookingRepository interface and constructor.
type BookingRepository = bookingRepo.BookingRepository

var NewMongoBookingRepo = bookingRepo.NewMongoBookingRepo

// Re-export the VehicleRepository interface and constructor.
type VehicleRepository = vehicleRepo.VehicleRepository

var NewMongoVehicleRepo = vehicleRepo.NewMongoVehicleRepo

// Re-export the AgreementRepository interface and constructor.
type AgreementRepository = agreementRepo.AgreementRepository

var NewMongoAgreementRepo = agreementRepo.NewMongoAgreementRepo

// Re-export the AgreementRecordRepository interface and constructor.
type AgreementRecordRepository = recordsRepo.AgreementRecordRepository

var NewMongoRecordRepo = recordsRepo.NewMongoRecordRepo
