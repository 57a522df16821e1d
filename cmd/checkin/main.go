// The checkin CLI walks the user through the initial-profile questionnaire
// and the daily symptom check, and submits the results to the backend.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/kaimanfr/checkin/internal/catalog"
	"github.com/kaimanfr/checkin/internal/config"
	"github.com/kaimanfr/checkin/internal/db"
	"github.com/kaimanfr/checkin/internal/gateway"
	"github.com/kaimanfr/checkin/internal/logging"
	"github.com/kaimanfr/checkin/internal/models"
	"github.com/kaimanfr/checkin/internal/services"
	"github.com/kaimanfr/checkin/internal/session"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: checkin <command> [args]

commands:
  login <email>                         store the email and register
  profile <last> <first> <yyyy-mm-dd>   set profile fields
  initial                               run the one-time profile questionnaire
  daily                                 run the daily symptom check
  history                               show submitted reports
  friends                               list friends
  unfriend <id>                         remove a friend
  drain                                 retry cached reports
  logout                                clear the stored session`)
	os.Exit(2)
}

type app struct {
	cfg      *config.Config
	log      *logrus.Entry
	store    *db.LocalStore
	creds    session.Store
	gw       *gateway.Client
	pipeline *services.SubmissionPipeline
	in       *bufio.Reader
}

func main() {
	_ = godotenv.Load()
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.Load(os.Getenv("CHECKIN_CONFIG"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logging.New("checkin", cfg.Log.Level)

	store, err := db.Open(cfg.Store.Path)
	if err != nil {
		log.WithError(err).Fatal("open local store")
	}
	defer func() { _ = store.Close() }()

	creds, err := session.NewFileStore(cfg.Session.Path, cfg.Session.Secret)
	if err != nil {
		log.WithError(err).Fatal("open session store")
	}

	gw := gateway.New(cfg.API.BaseURL, creds, log)
	var loc services.LocationProvider
	if cfg.Location.Enabled {
		loc = envLocation{}
	}
	a := &app{
		cfg:      cfg,
		log:      log,
		store:    store,
		creds:    creds,
		gw:       gw,
		pipeline: services.NewSubmissionPipeline(gw, store, store, loc, log),
		in:       bufio.NewReader(os.Stdin),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		if se, ok := services.AsServiceError(err); ok {
			fmt.Fprintf(os.Stderr, "error (%s): %s\n", se.Code, se.Message)
		} else {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		if len(args) != 1 {
			usage()
		}
		return a.login(ctx, args[0])
	case "profile":
		if len(args) != 3 {
			usage()
		}
		return a.profile(ctx, args[0], args[1], args[2])
	case "initial":
		return a.initial(ctx)
	case "daily":
		return a.daily(ctx)
	case "history":
		return a.history(ctx)
	case "friends":
		return a.friends(ctx)
	case "unfriend":
		if len(args) != 1 {
			usage()
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			usage()
		}
		return a.gw.DeleteFriend(ctx, id)
	case "drain":
		return a.pipeline.DrainPending(ctx)
	case "logout":
		return a.creds.Clear()
	default:
		usage()
	}
	return nil
}

func (a *app) login(ctx context.Context, email string) error {
	sess, err := a.creds.Session()
	if err != nil {
		return err
	}
	sess.Email = email
	if err := a.creds.SaveSession(sess); err != nil {
		return err
	}
	if err := a.gw.Register(ctx); err != nil {
		return err
	}
	fmt.Println("logged in as", email)
	return nil
}

func (a *app) profile(ctx context.Context, lastname, firstname, birthdate string) error {
	dob, err := time.Parse("2006-01-02", birthdate)
	if err != nil {
		return fmt.Errorf("birthdate must be yyyy-mm-dd: %w", err)
	}
	if _, err := a.gw.UpdateUser(ctx, lastname, firstname, dob); err != nil {
		return err
	}
	sess, err := a.creds.Session()
	if err != nil {
		return err
	}
	sess.Lastname, sess.Firstname = lastname, firstname
	if err := a.creds.SaveSession(sess); err != nil {
		return err
	}
	fmt.Println("profile updated")
	return nil
}

// initial runs the button-driven one-time questionnaire.
func (a *app) initial(ctx context.Context) error {
	if a.pipeline.InitialProfileDone() {
		fmt.Println("initial profile already submitted")
		return nil
	}
	flow := services.NewFlowController(catalog.InitialProfile())
	if err := flow.Start(); err != nil {
		return err
	}
	for {
		q, ok := flow.CurrentQuestion()
		if !ok {
			break
		}
		idx, _ := flow.CurrentIndex()
		fmt.Printf("\n[%d/%d] %s\n", idx+1, flow.Catalog().Len(), q.DisplayText)
		in, cancelled, err := a.promptAnswer(q)
		if err != nil {
			return err
		}
		if cancelled {
			return flow.Cancel()
		}
		if err := flow.Submit(in); err != nil {
			fmt.Println(" ", err)
		}
	}
	if flow.State() != services.FlowCompleted {
		return nil
	}
	if _, err := a.pipeline.SubmitInitialProfile(ctx, flow); err != nil {
		return err
	}
	fmt.Println("\ninitial profile submitted, thank you")
	return nil
}

// promptAnswer reads one answer for a question. Numeric questions take the
// value directly and translate it to the picker row the UI would select.
func (a *app) promptAnswer(q models.Question) (services.RawInput, bool, error) {
	if q.Numeric() {
		r := *q.Range
		fmt.Printf("  enter a value %d-%d %s [%d]: ", r.Min, r.Max, r.Unit, r.DefaultValue)
		line, err := a.readLine()
		if err != nil {
			return services.RawInput{}, false, err
		}
		if line == "q" {
			return services.RawInput{}, true, nil
		}
		index := r.DefaultIndex()
		if line != "" {
			v, err := strconv.Atoi(line)
			if err != nil {
				fmt.Println("  not a number, using default")
			} else {
				index = v - r.Min
			}
		}
		return services.RawInput{Kind: models.AnswerContinue, PickerIndex: index}, false, nil
	}

	keys := make([]string, 0, len(q.Buttons))
	for _, b := range q.Buttons {
		keys = append(keys, string(b))
	}
	fmt.Printf("  answer (%s, q to quit): ", strings.Join(keys, "/"))
	line, err := a.readLine()
	if err != nil {
		return services.RawInput{}, false, err
	}
	switch line {
	case "q":
		return services.RawInput{}, true, nil
	case "y":
		line = string(models.AnswerYes)
	case "n":
		line = string(models.AnswerNo)
	}
	return services.RawInput{Kind: models.AnswerKind(line)}, false, nil
}

// daily runs the swipe-style symptom check: y/n per card, u to undo, q to
// cancel.
func (a *app) daily(ctx context.Context) error {
	if err := a.pipeline.DrainPending(ctx); err != nil {
		a.log.WithError(err).Warn("draining cached reports")
	}
	swipe := services.NewSwipeFlow(services.NewFlowController(catalog.DailyMetrics()))
	if err := swipe.Start(); err != nil {
		return err
	}
	for swipe.Flow().State() == services.FlowAwaitingAnswer {
		q, _ := swipe.Flow().CurrentQuestion()
		idx, _ := swipe.Flow().CurrentIndex()
		fmt.Printf("\n[%d/%d] %s (y/n, u to undo, q to quit): ", idx+1, swipe.Flow().Catalog().Len(), q.DisplayText)
		line, err := a.readLine()
		if err != nil {
			return err
		}
		switch line {
		case "y":
			err = swipe.Swipe(services.SwipeRight)
		case "n":
			err = swipe.Swipe(services.SwipeLeft)
		case "u":
			swipe.Undo()
		case "q":
			return swipe.Cancel()
		default:
			fmt.Println("  y, n, u or q")
		}
		if err != nil {
			fmt.Println(" ", err)
		}
	}
	report, err := a.pipeline.BuildDailyReport(swipe.Flow())
	if err != nil {
		return err
	}
	if _, err := a.pipeline.SubmitDailyReport(ctx, report); err != nil {
		return err
	}
	fmt.Println("\ndaily report submitted, take care")
	return nil
}

func (a *app) history(ctx context.Context) error {
	user, err := a.gw.RetrieveUser(ctx)
	if err != nil {
		return err
	}
	if len(user.Metrics) == 0 {
		fmt.Println("no reports yet")
		return nil
	}
	for _, m := range user.Metrics {
		symptoms := make([]string, 0, len(m.Entries))
		for _, e := range m.Entries {
			if e.Value {
				symptoms = append(symptoms, e.Key)
			}
		}
		state := "fine"
		if len(symptoms) > 0 {
			state = strings.Join(symptoms, ", ")
		}
		fmt.Printf("%s  %s\n", m.Timestamp.Local().Format("2006-01-02 15:04"), state)
	}
	return nil
}

func (a *app) friends(ctx context.Context) error {
	friends, err := a.gw.RetrieveFriends(ctx)
	if err != nil {
		return err
	}
	if len(friends) == 0 {
		fmt.Println("no friends yet")
		return nil
	}
	for _, f := range friends {
		fmt.Printf("%d  %s %s\n", f.ID, f.Firstname, f.Lastname)
	}
	return nil
}

func (a *app) readLine() (string, error) {
	line, err := a.in.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// envLocation is the CLI's stand-in for the device location service: a
// fixed fix from CHECKIN_LAT/CHECKIN_LON, denied when unset.
type envLocation struct{}

func (envLocation) CurrentState() services.LocationState {
	if os.Getenv("CHECKIN_LAT") == "" || os.Getenv("CHECKIN_LON") == "" {
		return services.LocationDenied
	}
	return services.LocationAvailable
}

func (envLocation) Locate(ctx context.Context, tier services.AccuracyTier) (models.Coordinates, error) {
	lat, err := strconv.ParseFloat(os.Getenv("CHECKIN_LAT"), 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("parse CHECKIN_LAT: %w", err)
	}
	lon, err := strconv.ParseFloat(os.Getenv("CHECKIN_LON"), 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("parse CHECKIN_LON: %w", err)
	}
	return models.Coordinates{Latitude: lat, Longitude: lon}, nil
}
