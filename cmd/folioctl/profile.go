package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/khoahotran/personal-site/adapters/api"
	profileUC "github.com/khoahotran/personal-site/internal/application/usecase/profile"
	"github.com/khoahotran/personal-site/internal/console"
	"github.com/khoahotran/personal-site/internal/domain/profile"
	"github.com/khoahotran/personal-site/pkg/apperror"
)

func newProfileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update the admin profile and qualifications",
	}
	cmd.AddCommand(newProfileShowCmd(a), newProfileUpdateCmd(a), newQualificationsCmd(a))
	return cmd
}

func newProfileShowCmd(a *app) *cobra.Command {
	var asForm bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the admin profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, func(ctx context.Context, con *console.Console) error {
				out, err := con.Profile.ExecuteGetProfile(ctx)
				if err != nil {
					return err
				}
				if asForm {
					return a.printForm(out.Form)
				}
				return a.print(out.Profile)
			})
		},
	}
	cmd.Flags().BoolVar(&asForm, "form", false, "print the editable form instead of the record")
	return cmd
}

func newProfileUpdateCmd(a *app) *cobra.Command {
	var file, avatar string
	cmd := &cobra.Command{
		Use:   "update -f profile.yaml",
		Short: "Update the profile; keys missing from the file keep their current values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, con *console.Console) error {
				current, err := con.Profile.ExecuteGetProfile(ctx)
				if err != nil {
					return err
				}
				form := current.Form
				if err := yaml.Unmarshal(doc, &form); err != nil {
					return apperror.NewInvalidInput("Invalid profile file: "+err.Error(), err)
				}

				input := profileUC.UpdateProfileInput{Form: form}
				if avatar != "" {
					f, err := os.Open(avatar)
					if err != nil {
						return err
					}
					defer f.Close()
					input.Avatar = &api.File{Field: "avatar", Name: filepath.Base(avatar), Content: f}
					input.Progress = func(p int) { fmt.Fprintf(a.errOut, "\ruploading %3d%%", p) }
					defer fmt.Fprintln(a.errOut)
				}
				out, err := con.Profile.ExecuteUpdateProfile(ctx, input)
				if err != nil {
					return err
				}
				return a.print(out.Profile)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML profile file")
	cmd.Flags().StringVar(&avatar, "avatar", "", "image to upload as the avatar")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newQualificationsCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "qualifications -f qualifications.yaml",
		Short: "Replace the qualifications with the list in the file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var quals []profile.QualificationForm
			if err := yaml.Unmarshal(doc, &quals); err != nil {
				return apperror.NewInvalidInput("Invalid qualifications file: "+err.Error(), err)
			}
			return a.run(cmd, func(ctx context.Context, con *console.Console) error {
				out, err := con.Profile.ExecuteSaveQualifications(ctx, quals)
				if err != nil {
					return err
				}
				return a.print(out.Profile.Qualification)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML list of qualifications")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
