package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"triage-workers/internal/facility"
	"triage-workers/internal/models"
	"triage-workers/internal/triage"
	"triage-workers/pkg/registry"
)

const defaultPath = "configs/hospitals.json"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) < 1 {
		help(out)
		return errors.New("command required")
	}

	switch args[0] {
	case "add":
		return addFacility(args[1:], out)
	case "update":
		return updateFacility(args[1:], out)
	case "remove":
		return removeFacility(args[1:], out)
	case "validate":
		return validateRegistry(args[1:], out)
	case "list":
		return listFacilities(args[1:], out)
	case "nearest":
		return nearest(args[1:], out)
	case "help", "-h", "--help":
		help(out)
		return nil
	default:
		help(out)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	path := fs.String("path", defaultPath, "Path to the registry file (.json, .yaml)")
	return fs, path
}

func addFacility(args []string, out io.Writer) error {
	fs, path := newFlagSet("add")
	name := fs.String("name", "", "Facility name")
	lat := fs.Float64("lat", 0, "Latitude")
	lng := fs.Float64("lng", 0, "Longitude")
	phone := fs.String("phone", "", "Main phone number")
	ambulance := fs.String("ambulance-phone", "", "Ambulance line")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return errors.New("-name is required for add")
	}

	doc, err := loadOrCreate(*path)
	if err != nil {
		return err
	}

	f := models.Facility{Name: *name, Lat: *lat, Lng: *lng, Phone: optional(*phone), AmbulancePhone: optional(*ambulance)}
	if f.ContactPhone() == nil {
		return errors.New("-phone or -ambulance-phone is required for add")
	}
	if err := facility.ValidateFacilities([]models.Facility{f}); err != nil {
		return err
	}
	if err := doc.Add(f); err != nil {
		return err
	}
	if err := registry.Save(doc, *path); err != nil {
		return err
	}
	fmt.Fprintf(out, "Added facility: %s\n", *name)
	return nil
}

func updateFacility(args []string, out io.Writer) error {
	fs, path := newFlagSet("update")
	name := fs.String("name", "", "Facility to update")
	field := fs.String("field", "", "Field to update (lat, lng, phone, ambulance_phone, name)")
	value := fs.String("value", "", "New value; empty clears a phone")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" || *field == "" {
		return errors.New("-name and -field are required for update")
	}

	doc, err := registry.LoadRegistry(*path)
	if err != nil {
		return err
	}
	i := doc.Find(*name)
	if i < 0 {
		return fmt.Errorf("%w: %s", registry.ErrFacilityNotFound, *name)
	}

	f := doc.Facilities[i]
	switch *field {
	case "lat", "lng":
		v, err := strconv.ParseFloat(*value, 64)
		if err != nil {
			return fmt.Errorf("invalid %s value: %w", *field, err)
		}
		if *field == "lat" {
			f.Lat = v
		} else {
			f.Lng = v
		}
	case "phone":
		f.Phone = optional(*value)
	case "ambulance_phone":
		f.AmbulancePhone = optional(*value)
	case "name":
		if j := doc.Find(*value); j >= 0 && j != i {
			return fmt.Errorf("%w: %s", registry.ErrDuplicateFacility, *value)
		}
		f.Name = *value
	default:
		return fmt.Errorf("unknown field: %s", *field)
	}

	if err := facility.ValidateFacilities([]models.Facility{f}); err != nil {
		return err
	}
	doc.Facilities[i] = f
	doc.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	if err := registry.Save(doc, *path); err != nil {
		return err
	}
	fmt.Fprintf(out, "Updated facility %s, field %s\n", *name, *field)
	return nil
}

func removeFacility(args []string, out io.Writer) error {
	fs, path := newFlagSet("remove")
	name := fs.String("name", "", "Facility to remove")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return errors.New("-name is required for remove")
	}

	doc, err := registry.LoadRegistry(*path)
	if err != nil {
		return err
	}
	if err := doc.Remove(*name); err != nil {
		return err
	}
	if err := registry.Save(doc, *path); err != nil {
		return err
	}
	fmt.Fprintf(out, "Removed facility: %s\n", *name)
	return nil
}

func validateRegistry(args []string, out io.Writer) error {
	fs, path := newFlagSet("validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	doc, err := registry.LoadRegistry(*path)
	if err != nil {
		return err
	}
	if len(doc.Facilities) == 0 {
		return errors.New("registry contains no facilities")
	}
	if err := facility.ValidateFacilities(doc.Facilities); err != nil {
		return err
	}

	seen := make(map[string]bool, len(doc.Facilities))
	for _, f := range doc.Facilities {
		key := strings.ToLower(f.Name)
		if seen[key] {
			return fmt.Errorf("%w: %s", registry.ErrDuplicateFacility, f.Name)
		}
		seen[key] = true
	}

	fmt.Fprintf(out, "Registry validation passed. Found %d facilities.\n", len(doc.Facilities))
	return nil
}

func listFacilities(args []string, out io.Writer) error {
	fs, path := newFlagSet("list")
	if err := fs.Parse(args); err != nil {
		return err
	}

	doc, err := registry.LoadRegistry(*path)
	if err != nil {
		return err
	}
	for _, f := range doc.Facilities {
		phone := "-"
		if p := f.ContactPhone(); p != nil {
			phone = *p
		}
		fmt.Fprintf(out, "%-40s %10.5f %11.5f  %s\n", f.Name, f.Lat, f.Lng, phone)
	}
	return nil
}

func nearest(args []string, out io.Writer) error {
	fs, path := newFlagSet("nearest")
	lat := fs.Float64("lat", 0, "Query latitude")
	lng := fs.Float64("lng", 0, "Query longitude")
	severity := fs.String("severity", "", "Level of care to echo back")
	if err := fs.Parse(args); err != nil {
		return err
	}

	doc, err := registry.LoadRegistry(*path)
	if err != nil {
		return err
	}
	res, err := triage.LocateNearest(*severity, *lat, *lng, doc.Facilities)
	if err != nil {
		return err
	}

	phone := "-"
	if res.Phone != nil {
		phone = *res.Phone
	}
	fmt.Fprintf(out, "%s (%.2f km) phone %s\n", res.NearestHospital, res.DistanceKm, phone)
	return nil
}

func loadOrCreate(path string) (*registry.Document, error) {
	doc, err := registry.LoadRegistry(path)
	if err == nil {
		return doc, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return &registry.Document{
			Version:     "1.0.0",
			LastUpdated: time.Now().UTC().Format(time.RFC3339),
			Facilities:  []models.Facility{},
		}, nil
	}
	return nil, fmt.Errorf("failed to load registry: %w", err)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func help(out io.Writer) {
	fmt.Fprint(out, `
Usage: registry-updater <command> [flags]

Commands:
  add       Add a facility to the registry
  update    Change one field of a facility
  remove    Remove a facility by name
  validate  Validate the registry file
  list      Print every facility
  nearest   Show the facility closest to a point
  help      Show this help message

Examples:
  registry-updater add -name "General Hospital" -lat 1.2795 -lng 103.8346 -phone "+65 6222 3322"
  registry-updater update -name "General Hospital" -field ambulance_phone -value 995
  registry-updater remove -name "General Hospital"
  registry-updater validate -path configs/hospitals.yaml
  registry-updater nearest -lat 1.30 -lng 103.85 -severity ALS

Use 'registry-updater <command> -h' for more information about a command.
`)
}
