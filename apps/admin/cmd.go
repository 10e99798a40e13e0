package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"

	"github.com/kbindza/kalenda/core"
	"github.com/kbindza/kalenda/core/user"
	"github.com/kbindza/kalenda/storage/database"
)

var (
	migrateFunc = database.Migrate // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf   *core.Config
	db     *sql.DB
	usrSvc user.ServiceInterface
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate - apply pending database migrations")
	fmt.Println("  createadmin -email EMAIL -name NAME - create an admin account")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	createAdminCmd := flag.NewFlagSet("createadmin", flag.ExitOnError)
	createAdminEmail := createAdminCmd.String("email", "", "The admin's email address.")
	createAdminName := createAdminCmd.String("name", "", "The admin's full name.")

	switch args[1] {
	case "migrate":
		return cli.migrate()
	case "createadmin":
		if err := createAdminCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createAdminEmail == "" || *createAdminName == "" {
			createAdminCmd.Usage()
			return errHelp
		}
		return cli.createAdmin(*createAdminEmail, *createAdminName)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) migrate() error {
	return migrateFunc(cli.db, cli.conf)
}

// createAdmin creates a pre-verified admin account, or reports the
// existing account when the email is already taken.
func (cli *commandLine) createAdmin(email, name string) error {
	usr, err := cli.usrSvc.CreateAdmin(context.Background(), email, name)
	if err != nil {
		if verr, ok := err.(*core.ValidationError); ok && verr.Err == user.ErrEmailExists {
			fmt.Printf("an account with email %q already exists\n", core.CleanString(email, true /* lower */))
			return nil
		}
		return err
	}
	fmt.Printf("admin %q (%s) created\n", usr.Name, usr.Email)
	return nil
}
