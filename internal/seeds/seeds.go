package seeds

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-volunteering/internal/logger"
	"ms-volunteering/internal/models"
	"ms-volunteering/internal/users"
	"ms-volunteering/internal/utils"
)

// Registrar stores a user together with the events it owns.
type Registrar interface {
	Register(ctx context.Context, input *users.NewUser, owned []*models.Event) (*models.User, error)
}

type sampleEvent struct {
	Title       string
	Description string
	Address     string
	Zipcode     string
	Date        string
	AgeGroup    string
}

var sampleEvents = []sampleEvent{
	{"San Diego Refugee Tutoring", "Tutor refugee students for 2 hours on Tuesdays and Thursdays from 4pm to 6pm.", "4877 Orange Ave, San Diego, CA 92115", "92115", "2024-02-27", "14"},
	{"Youth Court", "Teens take the roles of lawyers and judges and hear cases about fellow students and their infractures.", "220 S Broadway, Escondido, CA 92025", "92025", "2024-02-27", "14"},
	{"Balboa Natural History Museum", "Volunteers educate visitors in the museum about animals at small display stands.", "1788 El Prado, San Diego, CA 92101", "92101", "2024-03-02", "16"},
	{"Step Up", "Mentoring program for girls", "510 South Hewitt Street #111 Los Angeles, CA 90013", "90013", "2024-03-02", "14"},
	{"Children Rising", "Tutoring program for students.", "2633 Telegraph Avenue #412 Oakland, CA 94612", "94612", "2024-03-10", "18"},
	{"Seattle Animal Shelter", "Help animals get adopted to loving families.", "2061 15th Ave W, Seattle, WA, 98119", "98119", "2024-03-10", "18"},
	{"Gods Love We Deliver", "Help cook and deliver meals to those in need.", "166 Avenue of the Americas New York, NY 10013", "10013", "2024-03-20", "18"},
	{"Horse Play Therapy Center", "Advance development and healing for children with special needs", "1925 State Road 207 Saint Augustine, FL 32086", "32086", "2024-03-14", "14"},
	{"Community Servings Food Heals", "Help deliver food to families experiencing critical or chronic illness and nutrition insecurity", "179 Amory Street Jamaica Plain, MA 02130", "02130", "2024-03-09", "18"},
	{"Emmaus", "Help prevent human trafficking and exploitation.", "954 W. Washington Blvd Chicago, IL 60607", "60607", "2024-03-30", "18"},
}

func dob(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// SampleUsers returns the demo accounts. today is used for the one user
// without a date of birth.
func SampleUsers(today time.Time) []*users.NewUser {
	midnight := utils.StartOfDay(today)
	return []*users.NewUser{
		{Name: "Thomas Edison", UID: "toby", Password: "123toby", DOB: dob(1847, time.February, 11), Role: models.DefaultRole},
		{Name: "Nicholas Tesla", UID: "niko", Password: "123niko", DOB: dob(1856, time.July, 10), Role: models.DefaultRole},
		{Name: "Alexander Graham Bell", UID: "lex", Password: users.DefaultPassword, DOB: midnight, Role: models.DefaultRole},
		{Name: "Grace Hopper", UID: "hop", Password: "123hop", DOB: dob(1906, time.December, 9), Role: models.DefaultRole},
		{Name: "Abe Lincoln2", UID: "abe2", Password: "123abe", DOB: dob(1906, time.December, 9), Role: models.DefaultRole},
		{Name: "Admin", UID: "admin", Password: "123admin", DOB: dob(1906, time.December, 9), Role: "Admin"},
	}
}

// SampleEvents returns one copy of every sample event, each title suffixed
// with n so that users do not share titles.
func SampleEvents(n int) ([]*models.Event, error) {
	out := make([]*models.Event, 0, len(sampleEvents))
	for _, s := range sampleEvents {
		date, err := utils.ParseDate(s.Date)
		if err != nil {
			return nil, fmt.Errorf("sample event %q: %w", s.Title, err)
		}
		out = append(out, &models.Event{
			Title:       fmt.Sprintf("%s%d", s.Title, n),
			Description: s.Description,
			Address:     s.Address,
			Zipcode:     s.Zipcode,
			Date:        date,
			AgeGroup:    s.AgeGroup,
		})
	}
	return out, nil
}

// Run creates the sample users and their events. Users that already exist
// are skipped.
func Run(ctx context.Context, registrar Registrar, today time.Time, log *logger.Logger) (int, error) {
	created := 0
	for i, u := range SampleUsers(today) {
		owned, err := SampleEvents(i + 1)
		if err != nil {
			return created, err
		}
		if _, err := registrar.Register(ctx, u, owned); err != nil {
			if errors.Is(err, users.ErrDuplicateUID) {
				log.Warn("SEED", fmt.Sprintf("Records exist, duplicate uid: %s", u.UID))
				continue
			}
			return created, fmt.Errorf("seed user %s: %w", u.UID, err)
		}
		created++
	}
	log.Info("SEED", fmt.Sprintf("Seeded %d users with %d events each", created, len(sampleEvents)))
	return created, nil
}
