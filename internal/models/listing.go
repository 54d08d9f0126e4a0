package models

import "time"

// Condition is the sale condition of a listed car.
type Condition string

const (
	ConditionNew      Condition = "new"
	ConditionPreowned Condition = "preowned"
)

// RegistrationStatus tells whether a listed car is already registered.
type RegistrationStatus string

const (
	StatusRegistered   RegistrationStatus = "registered"
	StatusUnregistered RegistrationStatus = "unregistered"
)

// Listing represents a car listed for sale (the "product" of the public API).
// Price is expressed in lakhs.
type Listing struct {
	ID                 string             `json:"_id" gorm:"primaryKey;type:varchar(36)" bson:"_id"`
	Company            string             `json:"company" gorm:"type:varchar(100);index" bson:"company" validate:"required,max=100"`
	Model              string             `json:"model" gorm:"type:varchar(100)" bson:"model" validate:"required,max=100"`
	Variant            string             `json:"variant" gorm:"type:varchar(100)" bson:"variant" validate:"required,max=100"`
	Color              string             `json:"color" gorm:"type:varchar(50)" bson:"color" validate:"required,max=50"`
	BodyType           string             `json:"bodyType" gorm:"type:varchar(50);index" bson:"bodyType" validate:"required,max=50"`
	FuelType           string             `json:"fuelType" gorm:"type:varchar(50);index" bson:"fuelType" validate:"required,max=50"`
	TransmissionType   string             `json:"transmissionType" gorm:"type:varchar(50)" bson:"transmissionType" validate:"required,max=50"`
	CarNumber          string             `json:"car_number" gorm:"column:car_number;type:varchar(10);index" bson:"car_number" validate:"required,carnumber"`
	DistanceCovered    float64            `json:"distanceCovered" bson:"distanceCovered" validate:"gte=0"`
	ModelYear          int                `json:"modelYear" bson:"modelYear" validate:"required,gte=1900,lte=2100"`
	RegistrationYear   int                `json:"registrationYear" bson:"registrationYear" validate:"required,gte=1900,lte=2100"`
	Price              float64            `json:"price" gorm:"index" bson:"price" validate:"required,gt=0"`
	Condition          Condition          `json:"condition" gorm:"type:varchar(20);default:new" bson:"condition" validate:"required,oneof=new preowned"`
	RegistrationStatus RegistrationStatus `json:"registrationStatus" gorm:"type:varchar(20);default:registered" bson:"registrationStatus" validate:"required,oneof=registered unregistered"`
	Images             []string           `json:"images" gorm:"serializer:json" bson:"images"`
	CreatedAt          time.Time          `json:"createdAt" gorm:"index" bson:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// ApplyDefaults fills the enumerated attributes the store defaults when omitted.
func (l *Listing) ApplyDefaults() {
	if l.Condition == "" {
		l.Condition = ConditionNew
	}
	if l.RegistrationStatus == "" {
		l.RegistrationStatus = StatusRegistered
	}
}

// ListingPatch carries the fields of a partial update. Nil pointers are left untouched.
type ListingPatch struct {
	Company            *string
	Model              *string
	Variant            *string
	Color              *string
	BodyType           *string
	FuelType           *string
	TransmissionType   *string
	CarNumber          *string
	DistanceCovered    *float64
	ModelYear          *int
	RegistrationYear   *int
	Price              *float64
	Condition          *Condition
	RegistrationStatus *RegistrationStatus
	ImagesToDelete     []string
}

// Apply copies every set field of the patch onto l.
func (p ListingPatch) Apply(l *Listing) {
	setString(&l.Company, p.Company)
	setString(&l.Model, p.Model)
	setString(&l.Variant, p.Variant)
	setString(&l.Color, p.Color)
	setString(&l.BodyType, p.BodyType)
	setString(&l.FuelType, p.FuelType)
	setString(&l.TransmissionType, p.TransmissionType)
	setString(&l.CarNumber, p.CarNumber)
	if p.DistanceCovered != nil {
		l.DistanceCovered = *p.DistanceCovered
	}
	if p.ModelYear != nil {
		l.ModelYear = *p.ModelYear
	}
	if p.RegistrationYear != nil {
		l.RegistrationYear = *p.RegistrationYear
	}
	if p.Price != nil {
		l.Price = *p.Price
	}
	if p.Condition != nil {
		l.Condition = *p.Condition
	}
	if p.RegistrationStatus != nil {
		l.RegistrationStatus = *p.RegistrationStatus
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
