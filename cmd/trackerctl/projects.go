package main

import (
	"context"

	"github.com/spf13/cobra"

	"vibe-tracker/tracker-backend/pkg/apiclient"
)

func (a *app) projectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project", "p"},
		Short:   "List and manage projects",
	}
	cmd.AddCommand(
		a.projectsListCmd(),
		a.projectsCreateCmd(),
		a.projectsShowCmd(),
		a.projectsRenameCmd(),
		a.projectsDeleteCmd(),
	)
	return cmd
}

func (a *app) projectsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects with staleness flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.api()
			if err != nil {
				return err
			}
			if err := a.refreshProjects(cmd.Context(), client); err != nil {
				return err
			}
			a.theme.renderProjects(a.out, a.projects.Projects(), a.now())
			return nil
		},
	}
}

func (a *app) projectsCreateCmd() *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.api()
			if err != nil {
				return err
			}
			p, err := client.CreateProject(cmd.Context(), args[0], description)
			if err != nil {
				return err
			}
			a.printf("Created %s (%s).\n", p.Name, p.ID)
			if err := a.refreshProjects(cmd.Context(), client); err != nil {
				a.theme.banner(a.out, err)
				return nil
			}
			n := len(a.projects.Projects())
			noun := "projects"
			if n == 1 {
				noun = "project"
			}
			a.printf("You have %d %s.\n", n, noun)
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "project description")
	return cmd
}

// refreshProjects reloads the dashboard list from the server.
func (a *app) refreshProjects(ctx context.Context, client *apiclient.Client) error {
	list, err := client.ListProjects(ctx)
	if err != nil {
		return err
	}
	a.projects.Replace(list)
	return nil
}

func (a *app) projectsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show phase rollup and step progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.api()
			if err != nil {
				return err
			}
			snap, err := client.GetProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.theme.renderSnapshot(a.out, snap, a.now())
			return nil
		},
	}
}

func (a *app) projectsRenameCmd() *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "rename <project-id> <name>",
		Short: "Rename a project and optionally change its description",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.api()
			if err != nil {
				return err
			}
			name := args[1]
			var desc *string
			if cmd.Flags().Changed("description") {
				desc = &description
			}
			p, err := client.UpdateProject(cmd.Context(), args[0], &name, desc)
			if err != nil {
				return err
			}
			a.printf("Renamed to %s.\n", p.Name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	return cmd
}

func (a *app) projectsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project and its progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.api()
			if err != nil {
				return err
			}
			if err := client.DeleteProject(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.printf("Deleted %s.\n", args[0])
			return nil
		},
	}
}
