package endpoint

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Mandhata08/Medi-care/model"
	"github.com/Mandhata08/Medi-care/util"
	"github.com/Mandhata08/Medi-care/workflow"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const defaultRadiusKm = 50

// hospitalView is the list payload: the hospital row plus the derived
// fields the discovery UI renders next to it.
type hospitalView struct {
	model.Hospital
	BedAvailability   model.BedAvailability `json:"bed_availability"`
	DoctorCount       int64                 `json:"doctor_count"`
	EmergencyWaitTime *int                  `json:"emergency_wait_time"`
	DistanceKm        *float64              `json:"distance_km,omitempty"`
}

// hospitalFilters collects every discovery query parameter. Radius only
// applies when an origin could be resolved.
type hospitalFilters struct {
	City               string
	State              string
	Search             string
	Specialization     string
	EmergencyAvailable bool
	OPDOpen            bool
	ICUAvailable       bool
	OpenNow            bool

	OriginLat float64
	OriginLon float64
	HasOrigin bool
	RadiusKm  float64
}

// geoFallback controls whether a missing lat/lon pair may be inferred
// from the client IP. Only map discovery infers; the plain listing
// filters by distance solely on explicit coordinates.
func parseHospitalFilters(c *gin.Context, geoFallback bool) hospitalFilters {
	f := hospitalFilters{
		City:               strings.TrimSpace(c.Query("city")),
		State:              strings.TrimSpace(c.Query("state")),
		Search:             strings.TrimSpace(c.Query("search")),
		Specialization:     strings.TrimSpace(c.Query("specialization")),
		EmergencyAvailable: c.Query("emergency_available") == "true",
		OPDOpen:            c.Query("opd_open") == "true",
		ICUAvailable:       c.Query("icu_available") == "true",
		OpenNow:            c.Query("open_now") == "true",
		RadiusKm:           defaultRadiusKm,
	}

	if raw := c.Query("radius"); raw != "" {
		if r, err := strconv.ParseFloat(raw, 64); err == nil && r > 0 {
			f.RadiusKm = r
		}
	}

	// Explicit coordinates win; map discovery may additionally fall
	// back to GeoIP on the client address. Without an origin, distance
	// filtering is skipped and the query degrades to a plain attribute
	// search.
	lat, latErr := strconv.ParseFloat(c.Query("latitude"), 64)
	lon, lonErr := strconv.ParseFloat(c.Query("longitude"), 64)
	if latErr == nil && lonErr == nil {
		f.OriginLat, f.OriginLon, f.HasOrigin = lat, lon, true
	} else if geoFallback {
		if glat, glon, ok := util.LookupClientCoordinates(c.ClientIP()); ok {
			f.OriginLat, f.OriginLon, f.HasOrigin = glat, glon, true
		}
	}

	return f
}

// queryHospitals runs the attribute filters in SQL and the
// distance filter in Go, mirrored by both list and map endpoints.
func queryHospitals(db *gorm.DB, f hospitalFilters) ([]hospitalView, error) {
	q := db.Model(&model.Hospital{}).Where("is_active = ? AND is_approved = ?", true, true)

	if f.City != "" {
		q = q.Where("city LIKE ?", "%"+f.City+"%")
	}
	if f.State != "" {
		q = q.Where("state LIKE ?", "%"+f.State+"%")
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		q = q.Where("name LIKE ? OR city LIKE ?", pattern, pattern)
	}
	if f.EmergencyAvailable {
		q = q.Where("emergency_available = ?", true)
	}
	if f.OPDOpen || f.OpenNow {
		q = q.Where("opd_open = ?", true)
	}
	if f.ICUAvailable {
		q = q.Where("id IN (?)", db.Model(&model.Bed{}).
			Select("hospital_id").
			Where("bed_type = ? AND is_available = ? AND is_occupied = ?", model.BedTypeICU, true, false))
	}
	if f.Specialization != "" {
		q = q.Where("id IN (?)", db.Model(&model.Doctor{}).
			Select("hospital_id").
			Where("specialization LIKE ? AND is_active = ? AND is_approved = ?", "%"+f.Specialization+"%", true, true))
	}

	var hospitals []model.Hospital
	if err := q.Order("name, id").Find(&hospitals).Error; err != nil {
		return nil, err
	}

	views := make([]hospitalView, 0, len(hospitals))
	for _, h := range hospitals {
		view := hospitalView{Hospital: h}

		if f.HasOrigin && h.Latitude != nil && h.Longitude != nil {
			dist := util.HaversineKm(f.OriginLat, f.OriginLon, *h.Latitude, *h.Longitude)
			if dist > f.RadiusKm {
				continue
			}
			view.DistanceKm = &dist
		}

		if err := decorateHospitalView(db, &view); err != nil {
			return nil, err
		}
		views = append(views, view)
	}

	if f.HasOrigin {
		sort.SliceStable(views, func(i, j int) bool {
			di, dj := views[i].DistanceKm, views[j].DistanceKm
			if di == nil || dj == nil {
				return dj == nil && di != nil
			}
			return *di < *dj
		})
	}

	return views, nil
}

func decorateHospitalView(db *gorm.DB, view *hospitalView) error {
	bedQuery := db.Model(&model.Bed{}).Where("hospital_id = ?", view.ID)
	if err := bedQuery.Count(&view.BedAvailability.Total).Error; err != nil {
		return err
	}
	if err := bedQuery.Where("is_available = ? AND is_occupied = ?", true, false).
		Count(&view.BedAvailability.Available).Error; err != nil {
		return err
	}

	if err := db.Model(&model.Doctor{}).
		Where("hospital_id = ? AND is_active = ? AND is_approved = ?", view.ID, true, true).
		Count(&view.DoctorCount).Error; err != nil {
		return err
	}

	var capacity model.EmergencyCapacity
	err := db.Where("hospital_id = ?", view.ID).First(&capacity).Error
	if err == nil {
		wait := capacity.WaitTimeMinutes
		view.EmergencyWaitTime = &wait
	} else if err != gorm.ErrRecordNotFound {
		return err
	}
	return nil
}

// ListHospitals godoc
// @Summary      List hospitals
// @Description  Public hospital discovery with attribute, specialization and radius filters
// @Tags         Hospitals
// @Produce      json
// @Param        search query string false "Match against name or city"
// @Param        city query string false "City filter"
// @Param        state query string false "State filter"
// @Param        specialization query string false "Require an active doctor with this specialization"
// @Param        emergency_available query bool false "Only hospitals with emergency services"
// @Param        opd_open query bool false "Only hospitals with OPD open"
// @Param        icu_available query bool false "Only hospitals with a free ICU bed"
// @Param        latitude query number false "Origin latitude for radius filtering"
// @Param        longitude query number false "Origin longitude for radius filtering"
// @Param        radius query number false "Radius in km, default 50"
// @Success      200 {object} util.APIResponse "Hospital list"
// @Router       /api/hospitals [get]
func ListHospitals(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	views, err := queryHospitals(db, parseHospitalFilters(c, false))
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to list hospitals", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Hospitals retrieved",
		Data: listEnvelope(int64(len(views)), "hospitals", views),
	})
}

// MapDiscovery godoc
// @Summary      Geo-aware hospital discovery
// @Description  Same filter set as the hospital list, ordered by distance from the resolved origin. Degrades to an unordered list when no origin is available.
// @Tags         Hospitals
// @Produce      json
// @Success      200 {object} util.APIResponse "Nearby hospitals"
// @Router       /api/hospitals/map-discovery [get]
func MapDiscovery(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	filters := parseHospitalFilters(c, true)
	views, err := queryHospitals(db, filters)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to run discovery", Err: err})
		return
	}

	data := listEnvelope(int64(len(views)), "hospitals", views)
	data["geo_resolved"] = filters.HasOrigin
	if filters.HasOrigin {
		data["origin"] = map[string]float64{"latitude": filters.OriginLat, "longitude": filters.OriginLon}
		data["radius_km"] = filters.RadiusKm
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Discovery results", Data: data})
}

type createHospitalRequest struct {
	Name               string   `json:"name" binding:"required"`
	Address            string   `json:"address"`
	City               string   `json:"city" binding:"required"`
	State              string   `json:"state"`
	Pincode            string   `json:"pincode"`
	Latitude           *float64 `json:"latitude"`
	Longitude          *float64 `json:"longitude"`
	Phone              string   `json:"phone"`
	Email              string   `json:"email"`
	LicenseNumber      string   `json:"license_number" binding:"required"`
	EmergencyAvailable bool     `json:"emergency_available"`
	OPDOpen            bool     `json:"opd_open"`
	CommissionRate     *float64 `json:"commission_rate"`
}

// CreateHospital godoc
// @Summary      Onboard a hospital
// @Description  Super admin registers a new hospital on the platform
// @Tags         Hospitals
// @Accept       json
// @Produce      json
// @Param        request body createHospitalRequest true "Hospital details"
// @Success      201 {object} util.APIResponse "Hospital created"
// @Failure      400 {object} util.APIResponse "Invalid payload or duplicate license"
// @Router       /api/hospitals [post]
func CreateHospital(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var req createHospitalRequest
	if !bindJSONOrRespond(c, &req, "Invalid hospital payload") {
		return
	}

	var existing model.Hospital
	if err := db.Where("license_number = ?", req.LicenseNumber).First(&existing).Error; err == nil {
		util.RespondError(c, util.IntegrityViolation("hospital with license number %s already exists", req.LicenseNumber))
		return
	}

	hospital := model.Hospital{
		Name:               util.NormalizeName(req.Name),
		Address:            req.Address,
		City:               req.City,
		State:              req.State,
		Pincode:            req.Pincode,
		Latitude:           req.Latitude,
		Longitude:          req.Longitude,
		Phone:              req.Phone,
		Email:              req.Email,
		LicenseNumber:      req.LicenseNumber,
		IsActive:           true,
		IsApproved:         true,
		EmergencyAvailable: req.EmergencyAvailable,
		OPDOpen:            req.OPDOpen,
	}
	if req.CommissionRate != nil {
		hospital.CommissionRate = *req.CommissionRate
	} else {
		hospital.CommissionRate = 5
	}

	if err := db.Create(&hospital).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create hospital", Err: err})
		return
	}
	util.CallSuccessCreated(c, util.APISuccessParams{Msg: "Hospital created", Data: hospital})
}

// GetHospital returns one hospital with its derived fields.
func GetHospital(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var hospital model.Hospital
	if err := db.First(&hospital, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.RespondError(c, util.NotFound("hospital"))
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to load hospital", Err: err})
		return
	}

	view := hospitalView{Hospital: hospital}
	if err := decorateHospitalView(db, &view); err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to load hospital", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Hospital retrieved", Data: view})
}

type updateHospitalRequest struct {
	Name               *string  `json:"name"`
	Address            *string  `json:"address"`
	City               *string  `json:"city"`
	State              *string  `json:"state"`
	Pincode            *string  `json:"pincode"`
	Latitude           *float64 `json:"latitude"`
	Longitude          *float64 `json:"longitude"`
	Phone              *string  `json:"phone"`
	Email              *string  `json:"email"`
	OPDOpen            *bool    `json:"opd_open"`
	EmergencyAvailable *bool    `json:"emergency_available"`
	CommissionRate     *float64 `json:"commission_rate"`
}

// UpdateHospital applies a partial update. Super admin only; route
// guarded by middleware.
func UpdateHospital(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req updateHospitalRequest
	if !bindJSONOrRespond(c, &req, "Invalid hospital payload") {
		return
	}

	var hospital model.Hospital
	if err := db.First(&hospital, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.RespondError(c, util.NotFound("hospital"))
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to load hospital", Err: err})
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = util.NormalizeName(*req.Name)
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.City != nil {
		updates["city"] = *req.City
	}
	if req.State != nil {
		updates["state"] = *req.State
	}
	if req.Pincode != nil {
		updates["pincode"] = *req.Pincode
	}
	if req.Latitude != nil {
		updates["latitude"] = *req.Latitude
	}
	if req.Longitude != nil {
		updates["longitude"] = *req.Longitude
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.OPDOpen != nil {
		updates["opd_open"] = *req.OPDOpen
	}
	if req.EmergencyAvailable != nil {
		updates["emergency_available"] = *req.EmergencyAvailable
	}
	if req.CommissionRate != nil {
		updates["commission_rate"] = *req.CommissionRate
	}
	if len(updates) == 0 {
		util.RespondError(c, util.Invalid("no updatable fields in payload"))
		return
	}

	if err := db.Model(&hospital).Updates(updates).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update hospital", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Hospital updated", Data: hospital})
}

// DeactivateHospital godoc
// @Summary      Deactivate a hospital
// @Description  Flips is_active off. Refused while the hospital still has in-flight appointments.
// @Tags         Hospitals
// @Produce      json
// @Param        id path int true "Hospital ID"
// @Success      200 {object} util.APIResponse "Hospital deactivated"
// @Failure      409 {object} util.APIResponse "In-flight appointments remain"
// @Router       /api/hospitals/{id} [delete]
func DeactivateHospital(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	actor, ok := currentUserOrRespond(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := workflow.DeactivateHospital(db, actor, id); err != nil {
		util.RespondError(c, err)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Hospital deactivated",
		Data: map[string]interface{}{"hospital_id": id},
	})
}

// ListBeds filters beds by hospital, type and availability.
func ListBeds(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	q := db.Model(&model.Bed{})
	if hospital := c.Query("hospital"); hospital != "" {
		q = q.Where("hospital_id = ?", hospital)
	}
	if bedType := c.Query("bed_type"); bedType != "" {
		q = q.Where("bed_type = ?", bedType)
	}
	if c.Query("available") == "true" {
		q = q.Where("is_available = ? AND is_occupied = ?", true, false)
	}

	var beds []model.Bed
	if err := q.Order("hospital_id, bed_number").Find(&beds).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to list beds", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Beds retrieved",
		Data: listEnvelope(int64(len(beds)), "beds", beds),
	})
}

// GetEmergencyCapacity returns live ED load for one hospital.
func GetEmergencyCapacity(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	hospitalID, ok := parseIDParam(c, "hospital_id")
	if !ok {
		return
	}

	var capacity model.EmergencyCapacity
	if err := db.Where("hospital_id = ?", hospitalID).First(&capacity).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.RespondError(c, util.NotFound("emergency capacity"))
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to load emergency capacity", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Emergency capacity retrieved", Data: capacity})
}

type updateEmergencyCapacityRequest struct {
	TotalCapacity        *int `json:"total_capacity"`
	CurrentOccupancy     *int `json:"current_occupancy"`
	WaitTimeMinutes      *int `json:"wait_time_minutes"`
	VentilatorsAvailable *int `json:"ventilators_available"`
	VentilatorsTotal     *int `json:"ventilators_total"`
}

// UpdateEmergencyCapacity upserts the capacity row for a hospital.
// Restricted to staff of that hospital and super admins.
func UpdateEmergencyCapacity(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	actor, ok := currentUserOrRespond(c)
	if !ok {
		return
	}
	hospitalID, ok := parseIDParam(c, "hospital_id")
	if !ok {
		return
	}

	if actor.Role != model.RoleSuperAdmin && actor.HospitalID != hospitalID {
		util.RespondError(c, util.Forbidden("capacity can only be updated for your own hospital"))
		return
	}

	var req updateEmergencyCapacityRequest
	if !bindJSONOrRespond(c, &req, "Invalid capacity payload") {
		return
	}

	var capacity model.EmergencyCapacity
	err := db.Where("hospital_id = ?", hospitalID).First(&capacity).Error
	if err == gorm.ErrRecordNotFound {
		capacity = model.EmergencyCapacity{HospitalID: hospitalID}
		if err := db.Create(&capacity).Error; err != nil {
			util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create capacity record", Err: err})
			return
		}
	} else if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to load capacity record", Err: err})
		return
	}

	updates := map[string]interface{}{}
	if req.TotalCapacity != nil {
		updates["total_capacity"] = *req.TotalCapacity
	}
	if req.CurrentOccupancy != nil {
		updates["current_occupancy"] = *req.CurrentOccupancy
	}
	if req.WaitTimeMinutes != nil {
		updates["wait_time_minutes"] = *req.WaitTimeMinutes
	}
	if req.VentilatorsAvailable != nil {
		updates["ventilators_available"] = *req.VentilatorsAvailable
	}
	if req.VentilatorsTotal != nil {
		updates["ventilators_total"] = *req.VentilatorsTotal
	}
	if len(updates) > 0 {
		if err := db.Model(&capacity).Updates(updates).Error; err != nil {
			util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update capacity", Err: err})
			return
		}
	}

	util.LogResourceAction(util.ActionEndpointCall, actor.ID, "EmergencyCapacity", capacity.ID, c.ClientIP(), map[string]interface{}{
		"hospital_id": hospitalID,
		"fields":      fmt.Sprintf("%d updated", len(updates)),
	})
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Emergency capacity updated", Data: capacity})
}
